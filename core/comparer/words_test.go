package comparer

import "testing"

func textAtoms(s, lang, key string) []*Atom {
	var atoms []*Atom
	for _, r := range s {
		ch := string(r)
		atoms = append(atoms, &Atom{Kind: kindText, Text: ch, Lang: lang, structKey: key, hash: digest(kindText, ch)})
	}
	return atoms
}

func wordTexts(words []*Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text()
	}
	return out
}

func TestWordGrouper(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang string
		want []string
	}{
		{"spaces", "the quick fox", "en-US", []string{"the", " ", "quick", " ", "fox"}},
		{"punctuation", "Hi, there.", "", []string{"Hi", ",", " ", "there", "."}},
		{"decimal", "pi is 3.14", "en-US", []string{"pi", " ", "is", " ", "3.14"}},
		{"thousands", "1,000,000 items", "", []string{"1,000,000", " ", "items"}},
		{"trailing period after number", "Value: 10.", "", []string{"Value", ":", " ", "10", "."}},
		{"han", "中文字", "zh-CN", []string{"中", "文", "字"}},
		{"kana without language", "かな", "", []string{"か", "な"}},
		{"hangul korean", "한국", "ko-KR", []string{"한", "국"}},
		{"hangul invariant", "한국", "", []string{"한국"}},
		{"hebrew gershayim", "צה\"ל כאן", "he-IL", []string{"צה\"ל", " ", "כאן"}},
		{"quote in english", "a\"b", "en-US", []string{"a", "\"", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wordTexts(newWordGrouper().group(textAtoms(tt.text, tt.lang, "/p")))
			if !equalStrings(got, tt.want) {
				t.Errorf("group(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestWordGrouperStructure(t *testing.T) {
	atoms := append(textAtoms("ab", "", "/p1"), textAtoms("cd", "", "/p2")...)
	got := wordTexts(newWordGrouper().group(atoms))
	if want := []string{"ab", "cd"}; !equalStrings(got, want) {
		t.Errorf("words crossed a paragraph: %q", got)
	}
}

func TestWordGrouperNonText(t *testing.T) {
	atoms := textAtoms("ab", "", "/p")
	tab := &Atom{Kind: "tab", Text: "\t", structKey: "/p", hash: digest("tab")}
	atoms = append(atoms[:1], append([]*Atom{tab}, atoms[1:]...)...)
	words := newWordGrouper().group(atoms)
	if len(words) != 3 {
		t.Fatalf("got %d words, want 3", len(words))
	}
	if words[1].Atoms()[0] != tab {
		t.Error("non-text atom not kept as its own word")
	}
}

func TestWordHash(t *testing.T) {
	a := newWordGrouper().group(textAtoms("same", "", "/p1"))
	b := newWordGrouper().group(textAtoms("same", "", "/p2"))
	c := newWordGrouper().group(textAtoms("diff", "", "/p1"))
	if a[0].Hash() != b[0].Hash() {
		t.Error("equal words hash differently")
	}
	if a[0].Hash() == c[0].Hash() {
		t.Error("different words share a hash")
	}
}
