package xmltree

import (
	"bufio"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding of a written document.
type Encoding int

const (
	// UTF16 is little-endian UTF-16 with a byte-order mark, which is the
	// encoding expected by the game client.
	UTF16 Encoding = iota
	// UTF8 is plain UTF-8 without a byte-order mark.
	UTF8
)

func (e Encoding) label() string {
	if e == UTF8 {
		return "UTF-8"
	}
	return "UTF-16"
}

// NewReader returns a Reader of UTF-8 text decoded from |r|, which may be
// UTF-16 (of either byte order, per its BOM) or UTF-8.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CharsetReader is an xml.Decoder CharsetReader for input already
// transcoded by NewReader: declared Unicode encodings pass through as-is.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "utf-16", "utf-16le", "utf-16be", "utf16", "utf-8", "utf8", "unicode":
		return input, nil
	default:
		return nil, errors.Errorf("unsupported document encoding %q", label)
	}
}

// Parse a document from |r|, returning its root Element.
func Parse(r io.Reader) (*Element, error) {
	var dec = xml.NewDecoder(NewReader(r))
	dec.CharsetReader = CharsetReader

	var stack []*Element
	var root *Element

	for {
		var tok, err = dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.WithMessage(err, "decoding document")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var el = New(t.Name.Local)
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) != 0 {
				stack[len(stack)-1].Append(el)
			} else if root == nil {
				root = el
			} else {
				return nil, errors.New("document has multiple root elements")
			}
			stack = append(stack, el)

		case xml.EndElement:
			var el = stack[len(stack)-1]
			el.Text = strings.TrimSpace(el.Text)
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) != 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	return root, nil
}

// Write the document rooted at |root| to |w| in the given Encoding,
// preceded by an XML declaration and indented by two spaces per level.
func Write(w io.Writer, root *Element, enc Encoding) error {
	var tw io.WriteCloser = nopCloser{w}
	if enc == UTF16 {
		tw = transform.NewWriter(w, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder())
	}
	var bw = bufio.NewWriter(tw)

	bw.WriteString(`<?xml version="1.0" encoding="` + enc.label() + `"?>` + "\n")
	if err := writeElement(bw, root, 0); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.WithMessage(err, "flushing document")
	}
	return errors.WithMessage(tw.Close(), "closing document encoder")
}

func writeElement(w *bufio.Writer, el *Element, depth int) error {
	var indent = strings.Repeat("  ", depth)

	w.WriteString(indent)
	w.WriteByte('<')
	w.WriteString(el.Tag)
	for _, a := range el.Attrs {
		w.WriteByte(' ')
		w.WriteString(a.Name)
		w.WriteString(`="`)
		if err := xml.EscapeText(w, []byte(a.Value)); err != nil {
			return errors.WithMessage(err, "escaping attribute")
		}
		w.WriteByte('"')
	}

	if len(el.Children) == 0 && el.Text == "" {
		_, err := w.WriteString("/>\n")
		return err
	}
	w.WriteByte('>')

	if len(el.Children) == 0 {
		if err := xml.EscapeText(w, []byte(el.Text)); err != nil {
			return errors.WithMessage(err, "escaping text")
		}
	} else {
		w.WriteByte('\n')
		for _, c := range el.Children {
			if err := writeElement(w, c, depth+1); err != nil {
				return err
			}
		}
		w.WriteString(indent)
	}
	w.WriteString("</")
	w.WriteString(el.Tag)
	_, err := w.WriteString(">\n")
	return err
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
