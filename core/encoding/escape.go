// Package encoding provides shared text escaping utilities for XML serialization.
package encoding

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// EscapeXML escapes special characters for XML content.
// Uses the standard library's xml.EscapeText for proper escaping.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

var textReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r", "&#xD;",
)

// EscapeXMLText escapes only the basic XML entities for text content.
// Carriage returns are written as character references so they survive a reparse.
func EscapeXMLText(s string) string {
	if !strings.ContainsAny(s, "&<>\r") {
		return s
	}
	return textReplacer.Replace(s)
}

var attrReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"\r", "&#xD;",
	"\n", "&#xA;",
	"\t", "&#x9;",
)

// EscapeXMLAttr escapes text for use in double-quoted XML attributes.
// Whitespace control characters are escaped because attribute value normalization
// would otherwise turn them into spaces.
func EscapeXMLAttr(s string) string {
	if !strings.ContainsAny(s, "&<>\"\r\n\t") {
		return s
	}
	return attrReplacer.Replace(s)
}
