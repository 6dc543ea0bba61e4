package xml

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"io"

	"github.com/FocuswithJustin/wmlcompare/core/encoding"
)

const declaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// ValidationResult contains the result of a well-formedness check.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a single well-formedness error.
type ValidationError struct {
	Line    int
	Column  int
	Message string
}

// Validate checks that data is well-formed XML.
//
// Entity expansion is disabled; the decoder never fetches external entities.
func Validate(data []byte) ValidationResult {
	result := ValidationResult{Valid: true}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}

	for {
		_, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, col := decoder.InputPos()
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Line:    line,
				Column:  col,
				Message: err.Error(),
			})
			break
		}
	}

	return result
}

// Serialize returns the document as XML with a declaration.
func (d *Document) Serialize() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the document as XML with a declaration.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	cw.WriteString(declaration)
	if d.root != InvalidNode {
		d.writeNode(cw, d.root)
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

// OuterXML returns the markup of a single node without a declaration.
func (d *Document) OuterXML(id NodeID) string {
	var buf bytes.Buffer
	cw := &countingWriter{w: bufio.NewWriter(&buf)}
	d.writeNode(cw, id)
	_ = cw.w.Flush()
	return buf.String()
}

func (d *Document) writeNode(w *countingWriter, id NodeID) {
	n := &d.nodes[id]
	switch n.Type {
	case TextNode:
		w.WriteString(encoding.EscapeXMLText(n.Text))
	case CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Text)
		w.WriteString("-->")
	case ElementNode:
		w.WriteString("<")
		writeQName(w, n.Prefix, n.Name.Local)
		for _, a := range n.Attrs {
			w.WriteString(" ")
			writeQName(w, a.Prefix, a.Name.Local)
			w.WriteString(`="`)
			w.WriteString(encoding.EscapeXMLAttr(a.Value))
			w.WriteString(`"`)
		}
		if len(n.Children) == 0 {
			w.WriteString("/>")
			return
		}
		w.WriteString(">")
		for _, c := range n.Children {
			d.writeNode(w, c)
		}
		w.WriteString("</")
		writeQName(w, n.Prefix, n.Name.Local)
		w.WriteString(">")
	}
}

func writeQName(w *countingWriter, prefix, local string) {
	if prefix != "" {
		w.WriteString(prefix)
		w.WriteString(":")
	}
	w.WriteString(local)
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) WriteString(s string) {
	if c.err != nil {
		return
	}
	n, err := c.w.WriteString(s)
	c.n += int64(n)
	c.err = err
}
