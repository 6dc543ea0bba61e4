package comparer

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/FocuswithJustin/wmlcompare/internal/logging"
)

// Comparer compares WordprocessingML stories. It holds only its settings and is safe
// for concurrent use.
type Comparer struct {
	settings Settings
}

// New returns a Comparer using the given settings.
func New(settings Settings) *Comparer {
	return &Comparer{settings: settings}
}

// Settings returns a copy of the comparer's settings.
func (c *Comparer) Settings() Settings {
	return c.settings
}

// Result is the outcome of a comparison or consolidation.
type Result struct {
	// Document is the assembled story carrying the differences as tracked revisions.
	Document *xml.Document
	// Sequences is the resolved correlation of a pairwise comparison.
	Sequences []*CorrelatedSequence
	// IDMaps reports the renumbering of cross-reference ids by source.
	IDMaps IDMaps

	notes []noteOrigin
}

// Revisions lists the tracked revisions of the assembled document.
func (r *Result) Revisions() ([]Revision, error) {
	return Revisions(r.Document)
}

// RenumberNotes aligns the note ids of a compared notes part with the reference ids
// assigned when the main story was compared. Notes nobody references are numbered
// after the highest referenced id.
func (r *Result) RenumberNotes(m IDMap) {
	highest := 0
	for _, byOld := range m {
		for _, v := range byOld {
			if n, err := strconv.Atoi(v); err == nil && n > highest {
				highest = n
			}
		}
	}
	for _, n := range r.notes {
		if v, ok := m.Lookup(n.label, n.old); ok {
			r.Document.SetAttr(n.id, attrID, v)
			continue
		}
		highest++
		r.Document.SetAttr(n.id, attrID, strconv.Itoa(highest))
	}
}

func newIDMaps() IDMaps {
	return IDMaps{
		Bookmarks: make(IDMap),
		Comments:  make(IDMap),
		Footnotes: make(IDMap),
		Endnotes:  make(IDMap),
	}
}

// comparison holds the correlated state of one pair of sources.
type comparison struct {
	left       *sideTable
	right      *sideTable
	records    []*CorrelatedSequence
	correspond map[nodeKey]nodeKey
	calls      int
}

func (c *Comparer) logger(ctx context.Context) *slog.Logger {
	return logging.With(ctx, c.settings.Logger)
}

// Compare compares left against right and returns one document in which the content
// of right appears as insertions and the content only in left as deletions.
func (c *Comparer) Compare(ctx context.Context, left, right Source) (*Result, error) {
	start := time.Now()
	log := c.logger(ctx)
	logging.ComparisonStarted(log, left.Name, right.Name)

	cmp, err := c.correlate(ctx, &c.settings, left, right, SideLeft.String(), SideRight.String(), log)
	if err != nil {
		return nil, err
	}
	entries, err := entriesFromRecords(cmp.records, &c.settings, c.settings.revisionDate())
	if err != nil {
		return nil, err
	}
	res, err := c.assemble(entries, cmp.correspond, cmp.right, cmp.left, cmp.right)
	if err != nil {
		return nil, err
	}
	res.Sequences = cmp.records

	logging.ComparisonFinished(log, left.Name, right.Name, len(cmp.records), time.Since(start),
		"left_atoms", len(cmp.left.atoms),
		"right_atoms", len(cmp.right.atoms),
		"correlator_calls", cmp.calls)
	return res, nil
}

// Correlate runs a comparison up to the resolved sequence without assembling a
// document.
func (c *Comparer) Correlate(ctx context.Context, left, right Source) ([]*CorrelatedSequence, error) {
	cmp, err := c.correlate(ctx, &c.settings, left, right, SideLeft.String(), SideRight.String(), c.logger(ctx))
	if err != nil {
		return nil, err
	}
	return cmp.records, nil
}

func (c *Comparer) correlate(ctx context.Context, s *Settings, left, right Source, leftLabel, rightLabel string, log *slog.Logger) (*comparison, error) {
	if err := Preflight(left); err != nil {
		return nil, err
	}
	if err := Preflight(right); err != nil {
		return nil, err
	}
	if left.Tree == right.Tree {
		right.Tree = right.Tree.Clone()
	}

	lt := newSideTable(SideLeft, leftLabel, left)
	rt := newSideTable(SideRight, rightLabel, right)
	if err := lt.atomize(s); err != nil {
		return nil, err
	}
	if err := rt.atomize(s); err != nil {
		return nil, err
	}

	words := newWordGrouper()
	lu := lt.buildGroups(words.group(lt.atoms))
	ru := rt.buildGroups(words.group(rt.atoms))
	log.Debug("atomized",
		"left_atoms", len(lt.atoms),
		"right_atoms", len(rt.atoms),
		"left_units", len(lu),
		"right_units", len(ru))

	cor := newCorrelator(ctx, s, log, lt, rt)
	cor.correspondRoots()

	var records []*CorrelatedSequence
	if len(lu) > 0 || len(ru) > 0 {
		var err error
		records, err = cor.resolve(lu, ru, 0)
		if err != nil {
			return nil, err
		}
	}
	if log.Enabled(ctx, slog.LevelDebug) {
		counts := map[Status]int{}
		for _, rec := range records {
			counts[rec.Status]++
		}
		log.Debug("correlated",
			"equal", counts[StatusEqual],
			"inserted", counts[StatusInserted],
			"deleted", counts[StatusDeleted])
	}
	return &comparison{
		left:       lt,
		right:      rt,
		records:    records,
		correspond: cor.correspond,
		calls:      cor.calls,
	}, nil
}

// assemble threads the entries under their output ancestors and builds the result.
// With nothing to assemble the result is a copy of fallback.
func (c *Comparer) assemble(entries []*entry, correspond map[nodeKey]nodeKey, fallback *sideTable, tables ...*sideTable) (*Result, error) {
	if len(entries) == 0 {
		return &Result{Document: fallback.doc.Compact(), IDMaps: newIDMaps()}, nil
	}
	setChains(entries, correspond)
	threadParagraphs(entries)

	r := newReassembler(&c.settings, tables...)
	doc, err := r.build(entries)
	if err != nil {
		return nil, err
	}
	maps, notes := r.renumber()
	return &Result{Document: doc, IDMaps: maps, notes: notes}, nil
}
