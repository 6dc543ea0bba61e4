package comparer

import (
	"context"
	"time"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/internal/logging"
	"github.com/FocuswithJustin/wmlcompare/internal/workerpool"
)

// originalLabel labels the original's ids in IDMaps; no revisor may use it.
const originalLabel = "original"

// Revisor is one reviewed copy of the original document.
type Revisor struct {
	// Name is the author written on the revisor's changes and the label of its ids.
	Name   string
	Source Source
	// Color is an optional hex fill (e.g. "FFFF00") shading the revisor's changes.
	Color string
}

// revisorDiff is one revisor's changes keyed by the index of the original atom they
// apply to.
type revisorDiff struct {
	revisor *Revisor
	cmp     *comparison
	date    string
	// inserted holds the atoms inserted before original atom k; k == len(original)
	// collects trailing insertions.
	inserted map[int][]*Atom
	deleted  map[int]bool
	// reformatted holds the revisor's counterpart of equal original atoms whose
	// properties differ.
	reformatted map[int]*Atom
}

// Consolidate merges the changes of several revisors against a common original into
// one document. Every revisor is compared with the original independently (in
// parallel); the results are merged by original position in revisor order, so the
// output does not depend on which comparison finished first.
//
// An original atom deleted by several revisors is attributed to the first of them.
// Insertions at the same position appear in revisor order.
func (c *Comparer) Consolidate(ctx context.Context, original Source, revisors []Revisor) (*Result, error) {
	if len(revisors) == 0 {
		return nil, errors.NewValidation("revisors", "at least one revisor is required")
	}
	names := make(map[string]bool, len(revisors))
	for _, rv := range revisors {
		if rv.Name == "" || rv.Name == originalLabel || names[rv.Name] {
			return nil, errors.NewValidationf("revisors", "revisor name %q is empty, reserved or repeated", rv.Name)
		}
		names[rv.Name] = true
	}
	start := time.Now()
	log := c.logger(ctx)
	date := c.settings.revisionDate()

	diffs, err := workerpool.Map(ctx, 0, revisors, func(ctx context.Context, i int, rv Revisor) (*revisorDiff, error) {
		s := c.settings
		s.AuthorForRevisions = rv.Name
		cmp, err := c.correlate(ctx, &s, original, rv.Source, originalLabel, rv.Name, log)
		if err != nil {
			return nil, errors.Wrapf(err, "revisor %s", rv.Name)
		}
		logging.ConsolidationStep(log, rv.Name, i+1, len(revisors), "records", len(cmp.records))
		return newRevisorDiff(&revisors[i], cmp, date)
	})
	if err != nil {
		return nil, err
	}

	entries := c.merge(diffs)

	reverse := make(map[nodeKey]nodeKey)
	tables := []*sideTable{diffs[0].cmp.left}
	for _, d := range diffs {
		for from, to := range d.cmp.correspond {
			reverse[to] = from
		}
		tables = append(tables, d.cmp.right)
	}
	res, err := c.assemble(entries, reverse, diffs[0].cmp.left, tables...)
	if err != nil {
		return nil, err
	}
	logging.ComparisonFinished(log, original.Name, "consolidated", len(entries), time.Since(start),
		"revisors", len(revisors))
	return res, nil
}

func newRevisorDiff(rv *Revisor, cmp *comparison, date string) (*revisorDiff, error) {
	d := &revisorDiff{
		revisor:     rv,
		cmp:         cmp,
		date:        date,
		inserted:    make(map[int][]*Atom),
		deleted:     make(map[int]bool),
		reformatted: make(map[int]*Atom),
	}
	k := 0
	for _, rec := range cmp.records {
		switch rec.Status {
		case StatusEqual:
			la, ra := atomsOf(rec.Left), atomsOf(rec.Right)
			if len(la) != len(ra) {
				return nil, errors.NewInternalf("consolidator", "equal record pairs %d atoms with %d", len(la), len(ra))
			}
			for i, a := range la {
				if a.format != ra[i].format {
					d.reformatted[a.Index] = ra[i]
				}
				k = a.Index + 1
			}
		case StatusDeleted:
			for _, a := range atomsOf(rec.Left) {
				if a.Status != StatusDeleted {
					d.deleted[a.Index] = true
				}
				k = a.Index + 1
			}
		case StatusInserted:
			d.inserted[k] = append(d.inserted[k], atomsOf(rec.Right)...)
		default:
			return nil, errors.NewInternalf("consolidator", "unresolved %s record", rec.Status)
		}
	}
	return d, nil
}

// merge interleaves the revisors' changes with the original atoms.
func (c *Comparer) merge(diffs []*revisorDiff) []*entry {
	original := diffs[0].cmp.left.atoms
	var out []*entry
	for k := 0; k <= len(original); k++ {
		for _, d := range diffs {
			for _, a := range d.inserted[k] {
				e := &entry{atom: a, status: StatusInserted, author: d.revisor.Name, date: d.date, color: d.revisor.Color}
				if a.Status != StatusEqual {
					e.status, e.author, e.date = a.Status, a.RevAuthor, a.RevDate
				}
				out = append(out, e)
			}
		}
		if k == len(original) {
			break
		}

		a := original[k]
		e := &entry{atom: a, status: a.Status, author: a.RevAuthor, date: a.RevDate}
		for _, d := range diffs {
			if d.deleted[k] {
				e.status, e.author, e.date, e.color = StatusDeleted, d.revisor.Name, d.date, d.revisor.Color
				break
			}
		}
		if e.status == StatusEqual && c.settings.TrackFormattingChanges {
			for _, d := range diffs {
				if ra, ok := d.reformatted[k]; ok {
					e.atom, e.before = ra, a
					e.author, e.date = d.revisor.Name, d.date
					break
				}
			}
		}
		out = append(out, e)
	}
	return out
}
