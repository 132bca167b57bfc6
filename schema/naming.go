package schema

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xiaohan1105/axmltools-sub005/mapping"
)

// DefaultNameLimit is the default maximum length of an identifier.
// MySQL's limit is 64: the remainder leaves room for collision suffixes.
const DefaultNameLimit = 60

// digestLen is the length of the "_" + six hex digit digest suffix.
const digestLen = 7

// ShortenName returns |name| if it's at most |limit| runes long. Otherwise
// it deterministically shortens |name| by repeatedly trimming a rune from its
// longest "__"-delimited segment (the earliest, on ties), until the name and
// a digest of the original |name| fit within |limit|. The digest is appended
// to the final segment. The number of segments is unchanged. A name having
// too many segments to fit |limit| is shortened as far as possible.
func ShortenName(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	var segs [][]rune
	for _, s := range strings.Split(name, mapping.TableSeparator) {
		segs = append(segs, []rune(s))
	}
	var budget = limit - digestLen

	for length(segs) > budget {
		var longest = 0
		for i := range segs {
			if len(segs[i]) > len(segs[longest]) {
				longest = i
			}
		}
		if len(segs[longest]) <= 1 {
			break // Cannot shorten further.
		}
		segs[longest] = segs[longest][:len(segs[longest])-1]
	}

	var parts = make([]string, len(segs))
	for i, s := range segs {
		// A trailing "_" would merge with the following separator.
		if t := strings.TrimRight(string(s), "_"); t != "" {
			parts[i] = t
		} else {
			parts[i] = string(s)
		}
	}
	parts[len(parts)-1] += digest(name)

	return strings.Join(parts, mapping.TableSeparator)
}

func length(segs [][]rune) int {
	var n = len(mapping.TableSeparator) * (len(segs) - 1)
	for _, s := range segs {
		n += len(s)
	}
	return n
}

func digest(name string) string {
	var h = fnv.New32a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("_%06x", h.Sum32()&0xffffff)
}

// namer assigns unique, shortened table names.
type namer struct {
	limit int
	used  map[string]struct{}
}

func newNamer(limit int) *namer {
	return &namer{limit: limit, used: make(map[string]struct{})}
}

// assign returns a unique name for |base|, which is shortened to the limit.
// A name already assigned is made unique with a numeric suffix.
func (n *namer) assign(base string) string {
	var name = ShortenName(base, n.limit)

	for i := 2; ; i++ {
		if _, ok := n.used[name]; !ok {
			break
		}
		var suffix = "_" + strconv.Itoa(i)
		name = ShortenName(base, n.limit-len(suffix)) + suffix
	}
	n.used[name] = struct{}{}
	return name
}
