package comparer

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
)

// nodeKey addresses a node of one of the source documents.
type nodeKey struct {
	doc *xml.Document
	id  xml.NodeID
}

// correlator resolves two unit sequences into Equal, Inserted and Deleted records.
type correlator struct {
	ctx      context.Context
	settings *Settings
	log      *slog.Logger
	left     *sideTable
	right    *sideTable

	// correspond maps left structural elements to the right elements they were paired
	// with, so deleted content can be threaded under the right-hand structure.
	correspond map[nodeKey]nodeKey

	calls int
}

func newCorrelator(ctx context.Context, s *Settings, log *slog.Logger, left, right *sideTable) *correlator {
	return &correlator{
		ctx:        ctx,
		settings:   s,
		log:        log,
		left:       left,
		right:      right,
		correspond: make(map[nodeKey]nodeKey),
	}
}

// resolve correlates left and right completely. Every record of the result is
// Equal, Inserted or Deleted.
func (c *correlator) resolve(left, right []Unit, depth int) ([]*CorrelatedSequence, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	c.calls++

	switch {
	case len(left) == 0 && len(right) == 0:
		return nil, errors.NewInternal("correlator", "unknown record with zero units")
	case len(left) == 0:
		return []*CorrelatedSequence{{Status: StatusInserted, Right: right}}, nil
	case len(right) == 0:
		return []*CorrelatedSequence{{Status: StatusDeleted, Left: left}}, nil
	}

	if len(left) == 1 && len(right) == 1 && !isGroup(left[0]) && !isGroup(right[0]) &&
		c.key(left[0], SideLeft, 0) != c.key(right[0], SideRight, 0) {
		return []*CorrelatedSequence{
			{Status: StatusDeleted, Left: left},
			{Status: StatusInserted, Right: right},
		}, nil
	}

	records := c.match(left, right)
	c.log.Debug("correlated level",
		"depth", depth,
		"left_units", len(left),
		"right_units", len(right),
		"records", len(records))

	var out []*CorrelatedSequence
	for _, rec := range records {
		if rec.Status != StatusUnknown {
			out = append(out, rec)
			continue
		}
		sub, err := c.refine(rec.Left, rec.Right, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func isGroup(u Unit) bool {
	_, ok := u.(*Group)
	return ok
}

// key is the LCS key of a unit. Content already deleted on the left or inserted on the
// right gets a key that matches nothing.
func (c *correlator) key(u Unit, side Side, i int) string {
	st := trackedStatus(u)
	if side == SideLeft && st == StatusDeleted {
		return "\x00L" + strconv.Itoa(i)
	}
	if side == SideRight && st == StatusInserted {
		return "\x00R" + strconv.Itoa(i)
	}
	return u.Hash()
}

func (c *correlator) keys(units []Unit, side Side) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = c.key(u, side, i)
	}
	return out
}

// match runs the LCS over one level and classifies the result. Unmatched regions with
// content on both sides come back as Unknown.
func (c *correlator) match(left, right []Unit) []*CorrelatedSequence {
	pairs := lcs(c.keys(left, SideLeft), c.keys(right, SideRight), c.settings.TieBreak)

	var out []*CorrelatedSequence
	pi, pj := 0, 0
	for _, p := range pairs {
		out = append(out, c.gap(left[pi:p[0]], right[pj:p[1]])...)

		l, r := left[p[0]], right[p[1]]
		if lg, ok := l.(*Group); ok {
			lg.CorrelatedHash = l.Hash()
		}
		if rg, ok := r.(*Group); ok {
			rg.CorrelatedHash = r.Hash()
		}
		if n := len(out); n > 0 && out[n-1].Status == StatusEqual && p[0] == pi && p[1] == pj {
			out[n-1].Left = append(out[n-1].Left, l)
			out[n-1].Right = append(out[n-1].Right, r)
		} else {
			out = append(out, &CorrelatedSequence{Status: StatusEqual, Left: []Unit{l}, Right: []Unit{r}})
		}
		pi, pj = p[0]+1, p[1]+1
	}
	return append(out, c.gap(left[pi:], right[pj:])...)
}

// gap classifies an unmatched region. Leading and trailing units that were already
// deleted (left) or inserted (right) are split off as resolved records.
func (c *correlator) gap(left, right []Unit) []*CorrelatedSequence {
	switch {
	case len(left) == 0 && len(right) == 0:
		return nil
	case len(left) == 0:
		return []*CorrelatedSequence{{Status: StatusInserted, Right: right}}
	case len(right) == 0:
		return []*CorrelatedSequence{{Status: StatusDeleted, Left: left}}
	}

	ld := 0
	for ld < len(left) && trackedStatus(left[ld]) == StatusDeleted {
		ld++
	}
	ri := 0
	for ri < len(right) && trackedStatus(right[ri]) == StatusInserted {
		ri++
	}
	lt := len(left)
	for lt > ld && trackedStatus(left[lt-1]) == StatusDeleted {
		lt--
	}
	rt := len(right)
	for rt > ri && trackedStatus(right[rt-1]) == StatusInserted {
		rt--
	}

	var out []*CorrelatedSequence
	if ld > 0 {
		out = append(out, &CorrelatedSequence{Status: StatusDeleted, Left: left[:ld]})
	}
	if ri > 0 {
		out = append(out, &CorrelatedSequence{Status: StatusInserted, Right: right[:ri]})
	}
	midL, midR := left[ld:lt], right[ri:rt]
	switch {
	case len(midL) > 0 && len(midR) > 0:
		out = append(out, &CorrelatedSequence{Status: StatusUnknown, Left: midL, Right: midR})
	case len(midL) > 0:
		out = append(out, &CorrelatedSequence{Status: StatusDeleted, Left: midL})
	case len(midR) > 0:
		out = append(out, &CorrelatedSequence{Status: StatusInserted, Right: midR})
	}
	if lt < len(left) {
		out = append(out, &CorrelatedSequence{Status: StatusDeleted, Left: left[lt:]})
	}
	if rt < len(right) {
		out = append(out, &CorrelatedSequence{Status: StatusInserted, Right: right[rt:]})
	}
	return out
}

// block is a run of units refined together: one structural group, a run of
// paragraphs, or a run of words and atoms.
type block struct {
	kind  blockKind
	key   string
	units []Unit
}

type blockKind uint8

const (
	blockLeaves blockKind = iota + 1
	blockParagraphs
	blockStructure
)

func makeBlocks(units []Unit) ([]block, error) {
	var out []block
	for _, u := range units {
		var kind blockKind
		var key string
		switch v := u.(type) {
		case *Atom, *Word:
			kind, key = blockLeaves, "leaves"
		case *Group:
			if v.Kind == GroupParagraph {
				kind, key = blockParagraphs, "paragraphs"
			} else {
				kind, key = blockStructure, v.Key
			}
		default:
			return nil, errors.NewInternalf("correlator", "unhandled unit type %T", u)
		}
		if n := len(out); n > 0 && kind != blockStructure && out[n-1].kind == kind {
			out[n-1].units = append(out[n-1].units, u)
			continue
		}
		out = append(out, block{kind: kind, key: key, units: []Unit{u}})
	}
	return out, nil
}

// refine resolves an Unknown record by pairing its blocks and expanding each pair one
// level down.
func (c *correlator) refine(left, right []Unit, depth int) ([]*CorrelatedSequence, error) {
	if allAtoms(left) && allAtoms(right) {
		return deleteInsert(left, right), nil
	}

	lb, err := makeBlocks(left)
	if err != nil {
		return nil, err
	}
	rb, err := makeBlocks(right)
	if err != nil {
		return nil, err
	}
	lk := make([]string, len(lb))
	for i, b := range lb {
		lk[i] = b.key
	}
	rk := make([]string, len(rb))
	for i, b := range rb {
		rk[i] = b.key
	}

	var out []*CorrelatedSequence
	unmatched := func(ls, rs []block) {
		var l, r []Unit
		for _, b := range ls {
			l = append(l, b.units...)
		}
		for _, b := range rs {
			r = append(r, b.units...)
		}
		out = append(out, deleteInsert(l, r)...)
	}

	pi, pj := 0, 0
	for _, p := range lcs(lk, rk, c.settings.TieBreak) {
		unmatched(lb[pi:p[0]], rb[pj:p[1]])
		sub, err := c.refinePair(lb[p[0]], rb[p[1]], depth)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
		pi, pj = p[0]+1, p[1]+1
	}
	unmatched(lb[pi:], rb[pj:])
	return out, nil
}

func (c *correlator) refinePair(l, r block, depth int) ([]*CorrelatedSequence, error) {
	switch l.kind {
	case blockStructure:
		lg, rg := l.units[0].(*Group), r.units[0].(*Group)
		c.pair(lg, rg)
		return c.resolve(lg.Children, rg.Children, depth+1)

	case blockParagraphs:
		if c.settings.DetailThreshold == LevelParagraph {
			return deleteInsert(l.units, r.units), nil
		}
		lw, err := expand(l.units)
		if err != nil {
			return nil, err
		}
		rw, err := expand(r.units)
		if err != nil {
			return nil, err
		}
		sub, err := c.resolve(lw, rw, depth+1)
		if err != nil {
			return nil, err
		}
		if matchRatio(sub) < c.settings.MinMatchRatio {
			return deleteInsert(l.units, r.units), nil
		}
		return sub, nil

	case blockLeaves:
		if c.settings.DetailThreshold < LevelAtom || (allAtoms(l.units) && allAtoms(r.units)) {
			return deleteInsert(l.units, r.units), nil
		}
		la, err := expand(l.units)
		if err != nil {
			return nil, err
		}
		ra, err := expand(r.units)
		if err != nil {
			return nil, err
		}
		return c.resolve(la, ra, depth+1)
	}
	return nil, errors.NewInternalf("correlator", "unhandled block kind %d", l.kind)
}

// pair records that two structural groups correspond. Text boxes also map the drawing
// markup between the paragraph and the text box content.
func (c *correlator) pair(l, r *Group) {
	c.correspond[nodeKey{c.left.doc, l.Anchor}] = nodeKey{c.right.doc, r.Anchor}
	if l.Kind != GroupTextbox {
		return
	}
	la, ra := l.Atoms(), r.Atoms()
	if len(la) == 0 || len(ra) == 0 {
		return
	}
	lc, rc := textboxPath(la[0], l.Anchor), textboxPath(ra[0], r.Anchor)
	if len(lc) != len(rc) {
		return
	}
	for i := range lc {
		if c.left.doc.Name(lc[i]) != c.right.doc.Name(rc[i]) {
			return
		}
	}
	for i := range lc {
		c.correspond[nodeKey{c.left.doc, lc[i]}] = nodeKey{c.right.doc, rc[i]}
	}
}

// textboxPath returns the chain elements between the paragraph holding a drawing and
// the text box content element.
func textboxPath(a *Atom, txbx xml.NodeID) []xml.NodeID {
	end := -1
	for i, id := range a.Ancestors {
		if id == txbx {
			end = i
			break
		}
	}
	if end < 0 {
		return nil
	}
	start := end
	for start > 0 && !a.Doc.Is(a.Ancestors[start-1], nameP) {
		start--
	}
	return a.Ancestors[start:end]
}

// expand replaces every unit by its children, one level down.
func expand(units []Unit) ([]Unit, error) {
	var out []Unit
	for _, u := range units {
		kids, err := children(u)
		if err != nil {
			return nil, err
		}
		if kids == nil {
			out = append(out, u)
			continue
		}
		out = append(out, kids...)
	}
	return out, nil
}

func allAtoms(units []Unit) bool {
	for _, u := range units {
		if _, ok := u.(*Atom); !ok {
			return false
		}
	}
	return true
}

func deleteInsert(left, right []Unit) []*CorrelatedSequence {
	var out []*CorrelatedSequence
	if len(left) > 0 {
		out = append(out, &CorrelatedSequence{Status: StatusDeleted, Left: left})
	}
	if len(right) > 0 {
		out = append(out, &CorrelatedSequence{Status: StatusInserted, Right: right})
	}
	return out
}

// matchRatio is the share of text atoms (paragraph marks excluded) that ended up
// Equal. Regions without text count as fully matched.
func matchRatio(records []*CorrelatedSequence) float64 {
	equal, total := 0, 0
	for _, rec := range records {
		for _, side := range [][]Unit{rec.Left, rec.Right} {
			for _, a := range atomsOf(side) {
				if a.IsParagraphMark() {
					continue
				}
				total++
				if rec.Status == StatusEqual {
					equal++
				}
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(equal) / float64(total)
}

// correspondRoots pairs the story roots and their direct block containers (w:body),
// which every atom shares.
func (c *correlator) correspondRoots() {
	ld, rd := c.left.doc, c.right.doc
	lr, rr := ld.Root(), rd.Root()
	c.correspond[nodeKey{ld, lr}] = nodeKey{rd, rr}
	for _, l := range ld.ChildElements(lr) {
		if !blockContainers[ld.Name(l)] || structuralElements[ld.Name(l)] != 0 {
			continue
		}
		if r := rd.FirstChild(rr, ld.Name(l)); r != xml.InvalidNode {
			c.correspond[nodeKey{ld, l}] = nodeKey{rd, r}
		}
	}
}
