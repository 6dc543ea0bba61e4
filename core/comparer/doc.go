// Package comparer compares two WordprocessingML stories and produces one story that
// carries the differences as tracked revisions.
//
// A comparison runs in five stages. The atomizer flattens each tree into content
// atoms, each holding its ancestor chain and a content hash. Atoms are grouped into
// words, and words into groups mirroring paragraph, cell, row, table and text box
// nesting. The correlator runs a longest-common-subsequence match level by level,
// refining unmatched regions from tables down to atoms. The reassembler rebuilds a single
// tree from the resolved sequence and renumbers cross-reference ids.
//
// Source documents are never mutated. Per-comparison state (unique ids, cached group
// hashes, consumed nodes) lives in side tables owned by the comparison, so one parsed
// document may be compared against several others concurrently.
package comparer
