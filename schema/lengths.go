package schema

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/clbanning/mxj"
	"github.com/pkg/errors"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

func init() {
	// Documents are decoded to UTF-8 by xmltree.NewReader, but retain their
	// original encoding declaration.
	mxj.XmlCharsetReader = xmltree.CharsetReader
}

// CollectLengths scans documents and returns the maximum observed text length
// of each field, keyed on column name: attributes are prefixed with
// mapping.AttrPrefix. Fields are identified by name alone, regardless of
// the element path at which they occur.
func CollectLengths(docs ...io.Reader) (map[string]int, error) {
	var out = make(map[string]int)

	for i, r := range docs {
		var m, err = mxj.NewMapXmlReader(xmltree.NewReader(r))
		if err != nil {
			return nil, errors.WithMessagef(err, "reading document %d", i)
		}
		for _, leaf := range m.LeafNodes() {
			var name = fieldOf(leaf.Path)
			if name == "" {
				continue
			}
			var n = utf8.RuneCountInString(fmt.Sprint(leaf.Value))
			if cur, ok := out[name]; !ok || n > cur {
				out[name] = n
			}
		}
	}
	return out, nil
}

// fieldOf maps a leaf path, such as "npcs.npc[3].-id" or "npcs.npc.name.#text",
// to its column name.
func fieldOf(path string) string {
	var parts = strings.Split(path, ".")
	var last = parts[len(parts)-1]

	if last == "#text" && len(parts) > 1 {
		last = parts[len(parts)-2]
	}
	if ind := strings.IndexByte(last, '['); ind != -1 {
		last = last[:ind]
	}
	if strings.HasPrefix(last, "-") {
		return mapping.AttrPrefix + last[1:]
	}
	return last
}
