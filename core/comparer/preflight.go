package comparer

import (
	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

// preflightRule flags content matching an XPath expression.
type preflightRule struct {
	feature string
	expr    string
}

// Content the comparator refuses: it cannot be compared meaningfully from the story
// alone, and passing it through would produce a misleading document.
var unsupportedContent = []preflightRule{
	{"legacy sub-document", "//w:subDoc"},
	{"imported chunk", "//w:altChunk"},
	{"ActiveX control", "//w:control"},
	{"mail-merge source", "//w:mailMerge"},
	{"mail-merge field", `//w:fldSimple[starts-with(normalize-space(@w:instr), "MERGEFIELD")] | //w:instrText[starts-with(normalize-space(.), "MERGEFIELD")]`},
	{"frame set", "//w:frameset"},
}

// Structure the comparator cannot correlate.
var malformedStructure = []preflightRule{
	{"w:ins", "//w:ins//w:ins[not(parent::w:rPr) and not(parent::w:trPr)]"},
	{"w:del", "//w:del//w:del[not(parent::w:rPr) and not(parent::w:trPr)]"},
	{"w:p", "//w:p//w:p[not(ancestor::w:txbxContent) or count(ancestor::w:p) > count(ancestor::w:txbxContent)]"},
	{"w:id", `//*[self::w:ins or self::w:del][@w:id and translate(@w:id, "0123456789-", "") != ""]`},
}

var malformedMessages = map[string]string{
	"w:ins": "insertion nested inside an insertion",
	"w:del": "deletion nested inside a deletion",
	"w:p":   "paragraph nested inside a paragraph outside a text box",
	"w:id":  "revision id is not numeric",
}

// Preflight checks a source before comparison. Unsupported content yields an
// *errors.UnsupportedError naming the rule that matched; malformed structure yields an
// *errors.ValidationError.
func Preflight(src Source) error {
	doc := src.Tree
	if doc == nil || doc.Root() == xml.InvalidNode {
		return &errors.ValidationError{Document: src.Name, Message: "empty document tree"}
	}
	if root := doc.Name(doc.Root()); !storyRoots[root] {
		return &errors.ValidationError{
			Document: src.Name,
			Field:    root.Local,
			Message:  "root element is not a WordprocessingML story",
		}
	}

	for _, rule := range unsupportedContent {
		found, err := doc.Exists(rule.expr)
		if err != nil {
			return errors.NewInternalf("preflight", "rule %q: %v", rule.feature, err)
		}
		if found {
			return errors.NewUnsupported(src.Name, rule.feature, rule.expr)
		}
	}
	for _, rule := range malformedStructure {
		found, err := doc.Exists(rule.expr)
		if err != nil {
			return errors.NewInternalf("preflight", "rule %q: %v", rule.feature, err)
		}
		if found {
			return &errors.ValidationError{
				Document: src.Name,
				Field:    rule.feature,
				Message:  malformedMessages[rule.feature],
			}
		}
	}
	return nil
}
