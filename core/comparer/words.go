package comparer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// breakRules selects the word-boundary rules for a language.
type breakRules uint8

const (
	rulesInvariant breakRules = iota
	rulesCJK
	rulesBidi
)

type wordGrouper struct {
	rules map[string]breakRules
}

func newWordGrouper() *wordGrouper {
	return &wordGrouper{rules: make(map[string]breakRules)}
}

func (g *wordGrouper) rulesFor(lang string) breakRules {
	if r, ok := g.rules[lang]; ok {
		return r
	}
	r := rulesInvariant
	if tag, err := language.Parse(lang); err == nil {
		base, _ := tag.Base()
		switch base.String() {
		case "zh", "ja", "ko":
			r = rulesCJK
		case "he", "ar", "fa", "ur", "yi":
			r = rulesBidi
		}
	}
	g.rules[lang] = r
	return r
}

// group splits the atoms into words. Atoms are first partitioned into segments that
// share a structural position, so no word crosses a paragraph, cell or text box.
func (g *wordGrouper) group(atoms []*Atom) []*Word {
	var words []*Word
	start := 0
	for i := 1; i <= len(atoms); i++ {
		if i == len(atoms) || atoms[i].structKey != atoms[start].structKey {
			words = append(words, g.segment(atoms[start:i])...)
			start = i
		}
	}
	return words
}

func (g *wordGrouper) segment(atoms []*Atom) []*Word {
	var words []*Word
	var cur []*Atom
	flush := func() {
		if len(cur) > 0 {
			words = append(words, newWord(cur))
			cur = nil
		}
	}

	for i, a := range atoms {
		if a.Kind != kindText {
			flush()
			words = append(words, newWord([]*Atom{a}))
			continue
		}
		r, _ := utf8.DecodeRuneInString(a.Text)
		rules := g.rulesFor(a.Lang)
		if g.isBoundary(atoms, i, r, rules) || isIdeographic(r, rules) {
			flush()
			words = append(words, newWord([]*Atom{a}))
			continue
		}
		cur = append(cur, a)
	}
	flush()
	return words
}

// isBoundary reports whether the character at i stands alone as a separator word.
func (g *wordGrouper) isBoundary(atoms []*Atom, i int, r rune, rules breakRules) bool {
	if unicode.IsSpace(r) {
		return true
	}
	if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
		return false
	}
	prev, next := neighbour(atoms, i-1), neighbour(atoms, i+1)
	switch {
	case (r == '.' || r == ',') && unicode.IsDigit(prev) && unicode.IsDigit(next):
		// Decimal and thousands separators stay inside numbers.
		return false
	case rules == rulesBidi && strings.ContainsRune("'\"׳״", r) && unicode.IsLetter(prev) && unicode.IsLetter(next):
		// Geresh and gershayim mark abbreviations inside Hebrew words.
		return false
	}
	return true
}

func neighbour(atoms []*Atom, i int) rune {
	if i < 0 || i >= len(atoms) || atoms[i].Kind != kindText {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(atoms[i].Text)
	return r
}

// isIdeographic reports whether the character forms a word by itself. Han and kana
// always do; Hangul only under East Asian language rules.
func isIdeographic(r rune, rules breakRules) bool {
	if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
		return true
	}
	return rules == rulesCJK && unicode.Is(unicode.Hangul, r)
}

func newWord(atoms []*Atom) *Word {
	parts := make([]string, len(atoms))
	for i, a := range atoms {
		parts[i] = a.hash
	}
	return &Word{atoms: atoms, hash: digest(parts...)}
}
