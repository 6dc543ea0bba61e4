package comparer

import (
	"context"
	"testing"
)

func TestConsolidate(t *testing.T) {
	original := mustSource(t, "original.xml", body(para("Value: 10.")))
	revisors := []Revisor{
		{Name: "Bob", Source: mustSource(t, "bob.xml", body(para("Value: 20."))), Color: "FFFF00"},
		{Name: "Mary", Source: mustSource(t, "mary.xml", body(para("Value: 10 units.")))},
	}

	res, err := New(testSettings()).Consolidate(context.Background(), original, revisors)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}

	type key struct {
		author string
		typ    RevisionType
		text   string
	}
	got := map[key]bool{}
	for _, r := range mustRevisions(t, res.Document) {
		got[key{r.Author, r.Type, r.Text}] = true
	}
	for _, want := range []key{
		{"Bob", RevisionDeleted, "10"},
		{"Bob", RevisionInserted, "20"},
		{"Mary", RevisionInserted, " units"},
	} {
		if !got[want] {
			t.Errorf("missing revision %+v; have %v", want, got)
		}
	}
	if len(got) != 3 {
		t.Errorf("got %d distinct revisions, want 3: %v", len(got), got)
	}

	if ok, _ := res.Document.Exists(`//w:ins[@w:author="Bob"]//w:shd[@w:fill="FFFF00"]`); !ok {
		t.Errorf("Bob's color not applied:\n%s", res.Document.Serialize())
	}
	if ok, _ := res.Document.Exists(`//w:ins[@w:author="Mary"]//w:shd`); ok {
		t.Error("Mary's changes shaded without a color")
	}

	if got := accepted(t, res.Document); len(got) != 1 || got[0] != "Value: 20 units." {
		t.Errorf("accepted = %q", got)
	}
	if got := rejected(t, res.Document); len(got) != 1 || got[0] != "Value: 10." {
		t.Errorf("rejected = %q", got)
	}
}

func TestConsolidateCoincidentDeletion(t *testing.T) {
	original := mustSource(t, "original.xml", body(para("keep drop keep")))
	revisors := []Revisor{
		{Name: "First", Source: mustSource(t, "1.xml", body(para("keep keep")))},
		{Name: "Second", Source: mustSource(t, "2.xml", body(para("keep keep")))},
	}
	res, err := New(testSettings()).Consolidate(context.Background(), original, revisors)
	if err != nil {
		t.Fatal(err)
	}
	var deletions []Revision
	for _, r := range mustRevisions(t, res.Document) {
		if r.Type == RevisionDeleted {
			deletions = append(deletions, r)
		}
	}
	if len(deletions) != 1 || deletions[0].Author != "First" {
		t.Errorf("deletions = %+v, want one by First", deletions)
	}
}

func TestConsolidateDeterministic(t *testing.T) {
	original := mustSource(t, "original.xml", body(para("a b c d"), para("e f")))
	var revisors []Revisor
	for i, text := range []string{"a x c d", "a b c d z", "q b c d", "a b c"} {
		revisors = append(revisors, Revisor{
			Name:   string(rune('A' + i)),
			Source: mustSource(t, "r.xml", body(para(text), para("e f"))),
		})
	}
	c := New(testSettings())
	first, err := c.Consolidate(context.Background(), original, revisors)
	if err != nil {
		t.Fatal(err)
	}
	want := string(first.Document.Serialize())
	for i := 0; i < 5; i++ {
		again, err := c.Consolidate(context.Background(), original, revisors)
		if err != nil {
			t.Fatal(err)
		}
		if got := string(again.Document.Serialize()); got != want {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestConsolidateNoRevisors(t *testing.T) {
	original := mustSource(t, "original.xml", body(para("x")))
	if _, err := New(testSettings()).Consolidate(context.Background(), original, nil); err == nil {
		t.Error("Consolidate without revisors should fail")
	}
}

func TestConsolidateRevisorNames(t *testing.T) {
	original := mustSource(t, "original.xml", body(para("x")))
	src := mustSource(t, "r.xml", body(para("y")))
	for _, revisors := range [][]Revisor{
		{{Name: "", Source: src}},
		{{Name: "original", Source: src}},
		{{Name: "Bob", Source: src}, {Name: "Bob", Source: src}},
	} {
		if _, err := New(testSettings()).Consolidate(context.Background(), original, revisors); err == nil {
			t.Errorf("Consolidate(%+v) should fail", revisors)
		}
	}
}
