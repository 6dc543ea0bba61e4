package comparer

import "sort"

// maxTableCells bounds the dynamic-programming table. Larger regions are first split
// on elements that occur exactly once on each side.
const maxTableCells = 1 << 24

// lcs returns the index pairs of a longest common subsequence of a and b in
// increasing order.
func lcs(a, b []string, tie TieBreak) [][2]int {
	n, m := len(a), len(b)
	var pairs [][2]int

	p := 0
	for p < n && p < m && a[p] == b[p] {
		pairs = append(pairs, [2]int{p, p})
		p++
	}
	s := 0
	for s < n-p && s < m-p && a[n-1-s] == b[m-1-s] {
		s++
	}

	for _, pr := range lcsMiddle(a[p:n-s], b[p:m-s], tie) {
		pairs = append(pairs, [2]int{pr[0] + p, pr[1] + p})
	}
	for k := s; k > 0; k-- {
		pairs = append(pairs, [2]int{n - k, m - k})
	}
	return pairs
}

func lcsMiddle(a, b []string, tie TieBreak) [][2]int {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	if (len(a)+1)*(len(b)+1) <= maxTableCells {
		return lcsTable(a, b, tie)
	}
	return lcsAnchored(a, b, tie)
}

// lcsTable fills a suffix-length table and walks it forward, taking every match as
// soon as it lies on an optimal path. Ties between skipping a left or a right element
// follow the tie-break policy.
func lcsTable(a, b []string, tie TieBreak) [][2]int {
	n, m := len(a), len(b)
	w := m + 1
	t := make([]int32, (n+1)*w)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				t[i*w+j] = t[(i+1)*w+j+1] + 1
			case t[(i+1)*w+j] >= t[i*w+j+1]:
				t[i*w+j] = t[(i+1)*w+j]
			default:
				t[i*w+j] = t[i*w+j+1]
			}
		}
	}

	var pairs [][2]int
	i, j := 0, 0
	for i < n && j < m {
		if a[i] == b[j] {
			pairs = append(pairs, [2]int{i, j})
			i++
			j++
			continue
		}
		skipLeft, skipRight := t[(i+1)*w+j], t[i*w+j+1]
		switch {
		case skipLeft > skipRight:
			i++
		case skipRight > skipLeft:
			j++
		case tie == PreferEarliestLeft:
			j++
		default:
			i++
		}
	}
	return pairs
}

// lcsAnchored splits a and b on elements unique to both sides, keeps the longest
// increasing run of such anchors, and solves the regions between anchors separately.
// Regions without anchors that are still too large stay unmatched.
func lcsAnchored(a, b []string, tie TieBreak) [][2]int {
	countA := make(map[string]int, len(a))
	for _, k := range a {
		countA[k]++
	}
	countB := make(map[string]int, len(b))
	posB := make(map[string]int, len(b))
	for j, k := range b {
		countB[k]++
		posB[k] = j
	}

	var cands [][2]int
	for i, k := range a {
		if countA[k] == 1 && countB[k] == 1 {
			cands = append(cands, [2]int{i, posB[k]})
		}
	}
	anchors := longestIncreasing(cands)
	if len(anchors) == 0 {
		return nil
	}

	var pairs [][2]int
	pi, pj := 0, 0
	for _, an := range anchors {
		for _, pr := range lcsMiddle(a[pi:an[0]], b[pj:an[1]], tie) {
			pairs = append(pairs, [2]int{pr[0] + pi, pr[1] + pj})
		}
		pairs = append(pairs, an)
		pi, pj = an[0]+1, an[1]+1
	}
	for _, pr := range lcsMiddle(a[pi:], b[pj:], tie) {
		pairs = append(pairs, [2]int{pr[0] + pi, pr[1] + pj})
	}
	return pairs
}

// longestIncreasing returns the longest subsequence of cands (ordered by the first
// index) whose second index increases, using patience sorting.
func longestIncreasing(cands [][2]int) [][2]int {
	if len(cands) == 0 {
		return nil
	}
	tails := []int{}
	prev := make([]int, len(cands))
	for k, c := range cands {
		pos := sort.Search(len(tails), func(x int) bool { return cands[tails[x]][1] >= c[1] })
		if pos > 0 {
			prev[k] = tails[pos-1]
		} else {
			prev[k] = -1
		}
		if pos == len(tails) {
			tails = append(tails, k)
		} else {
			tails[pos] = k
		}
	}
	out := make([][2]int, len(tails))
	for k, x := len(tails)-1, tails[len(tails)-1]; k >= 0; k, x = k-1, prev[x] {
		out[k] = cands[x]
	}
	return out
}
