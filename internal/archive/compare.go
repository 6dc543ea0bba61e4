package archive

import (
	"context"

	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/errors"
)

// Options selects the parts compared besides the main document.
type Options struct {
	// Parts also compares headers and footers that exist under the same part name in
	// both packages.
	Parts bool
}

// Compare compares the main documents of two packages and returns a copy of right
// carrying the result. Notes parts present in both packages are compared as stories
// and renumbered to match the note references; comments, and notes present on one
// side only, are merged from both sources.
func Compare(ctx context.Context, c *comparer.Comparer, left, right *Package, opts Options) (*Package, *comparer.Result, error) {
	ls, err := left.MainSource()
	if err != nil {
		return nil, nil, err
	}
	rs, err := right.MainSource()
	if err != nil {
		return nil, nil, err
	}
	res, err := c.Compare(ctx, ls, rs)
	if err != nil {
		return nil, nil, err
	}

	out := right.Clone()
	out.SetTree(out.main, "", res.Document)
	if left.single || right.single {
		return out, res, nil
	}

	labeled := []labeledPackage{{"right", right}, {"left", left}}
	for _, kind := range companionKinds {
		m := kind.ids(res.IDMaps)
		if kind.relType != RelComments {
			lp, lok := left.RelatedPart(left.main, kind.relType)
			rp, rok := right.RelatedPart(right.main, kind.relType)
			if lok && rok {
				if err := compareNotes(ctx, c, left, right, out, lp, rp, m); err != nil {
					return nil, nil, err
				}
				continue
			}
		}
		if err := mergeCompanion(out, kind.relType, kind.entry, kind.contentType, kind.defaultName, m, labeled); err != nil {
			return nil, nil, err
		}
	}

	if opts.Parts {
		if err := compareSectionParts(ctx, c, left, right, out); err != nil {
			return nil, nil, err
		}
	}
	return out, res, nil
}

func compareNotes(ctx context.Context, c *comparer.Comparer, left, right, out *Package, lp, rp string, m comparer.IDMap) error {
	ls, err := left.Source(lp)
	if err != nil {
		return err
	}
	rs, err := right.Source(rp)
	if err != nil {
		return err
	}
	res, err := c.Compare(ctx, ls, rs)
	if err != nil {
		return errors.Wrapf(err, "comparing %s", rp)
	}
	res.RenumberNotes(m)
	out.SetTree(rp, "", res.Document)
	return nil
}

// compareSectionParts compares the headers and footers of right with the left parts
// of the same name.
func compareSectionParts(ctx context.Context, c *comparer.Comparer, left, right, out *Package) error {
	rels, err := right.Relationships(right.main)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if rel.External || (rel.Type != RelHeader && rel.Type != RelFooter) {
			continue
		}
		name := ResolveTarget(right.main, rel.Target)
		if _, ok := left.index[name]; !ok {
			continue
		}
		if _, ok := right.index[name]; !ok {
			continue
		}
		ls, err := left.Source(name)
		if err != nil {
			return err
		}
		rs, err := right.Source(name)
		if err != nil {
			return err
		}
		res, err := c.Compare(ctx, ls, rs)
		if err != nil {
			return errors.Wrapf(err, "comparing %s", name)
		}
		out.SetTree(name, "", res.Document)
	}
	return nil
}

// RevisorPackage is one reviewer's edited copy of the original package.
type RevisorPackage struct {
	Name    string
	Color   string
	Package *Package
}

// Consolidate merges the revisions of several reviewers into a copy of the original
// package. Comments and notes are merged from the original and every revisor.
func Consolidate(ctx context.Context, c *comparer.Comparer, original *Package, revisors []RevisorPackage) (*Package, *comparer.Result, error) {
	orig, err := original.MainSource()
	if err != nil {
		return nil, nil, err
	}
	revs := make([]comparer.Revisor, len(revisors))
	labeled := []labeledPackage{{"original", original}}
	for i, rv := range revisors {
		src, err := rv.Package.MainSource()
		if err != nil {
			return nil, nil, err
		}
		revs[i] = comparer.Revisor{Name: rv.Name, Source: src, Color: rv.Color}
		labeled = append(labeled, labeledPackage{rv.Name, rv.Package})
	}

	res, err := c.Consolidate(ctx, orig, revs)
	if err != nil {
		return nil, nil, err
	}
	out := original.Clone()
	out.SetTree(out.main, "", res.Document)
	if original.single {
		return out, res, nil
	}
	for _, kind := range companionKinds {
		if err := mergeCompanion(out, kind.relType, kind.entry, kind.contentType, kind.defaultName, kind.ids(res.IDMaps), labeled); err != nil {
			return nil, nil, err
		}
	}
	return out, res, nil
}
