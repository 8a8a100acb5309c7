// Copyright © 2024 The seqfilter Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package matrix

import "sort"

// ScoreMatrix holds, for every source index, the list of target indexes
// sorted by descending score. Both the scores and the co-indexed target
// arrays are dense: every row has Cols entries. The first entry of row u
// is always (u, maxScore).
type ScoreMatrix struct {
	Span    int       // number of sequence positions a row index spans
	Rows    int       // number of source indexes
	Cols    int       // entries per row
	Scores  [][]int16 // Scores[u] sorted descending
	Indexes [][]uint32
}

// ExtendedSubstitutionMatrix extends a residue substitution matrix to
// k-mers of size k: the score of a k-mer pair is the sum of the
// per-position residue scores. The unknown symbol participates here;
// callers exclude unknown-containing k-mers before lookup.
type ExtendedSubstitutionMatrix struct {
	K    int
	Size int // |A|^k
	ScoreMatrix
}

// NewExtendedSubstitutionMatrix builds the dense k-mer pair score table
// for k in {2, 3}, each row sorted by descending score with the identity
// pair first among equals.
func NewExtendedSubstitutionMatrix(m *SubstitutionMatrix, k int) *ExtendedSubstitutionMatrix {
	size := 1
	for i := 0; i < k; i++ {
		size *= m.Size
	}
	e := &ExtendedSubstitutionMatrix{
		K:    k,
		Size: size,
		ScoreMatrix: ScoreMatrix{
			Span:    k,
			Rows:    size,
			Cols:    size,
			Scores:  make([][]int16, size),
			Indexes: make([][]uint32, size),
		},
	}

	// per k-mer residue decomposition, most significant position first
	residues := make([][]uint8, size)
	for u := 0; u < size; u++ {
		rs := make([]uint8, k)
		x := u
		for p := k - 1; p >= 0; p-- {
			rs[p] = uint8(x % m.Size)
			x /= m.Size
		}
		residues[u] = rs
	}

	for u := 0; u < size; u++ {
		scores := make([]int16, size)
		indexes := make([]uint32, size)
		ru := residues[u]
		for v := 0; v < size; v++ {
			rv := residues[v]
			var s int16
			for p := 0; p < k; p++ {
				s += m.Scores[ru[p]][rv[p]]
			}
			scores[v] = s
			indexes[v] = uint32(v)
		}
		sortRow(scores, indexes, uint32(u))
		e.Scores[u] = scores
		e.Indexes[u] = indexes
	}
	return e
}

// sortRow sorts (scores, indexes) by descending score; among entries
// with the maximum score, the identity index self comes first.
func sortRow(scores []int16, indexes []uint32, self uint32) {
	sort.Sort(&rowSorter{scores, indexes, self})
}

type rowSorter struct {
	scores  []int16
	indexes []uint32
	self    uint32
}

func (r *rowSorter) Len() int { return len(r.scores) }
func (r *rowSorter) Less(i, j int) bool {
	if r.scores[i] != r.scores[j] {
		return r.scores[i] > r.scores[j]
	}
	if r.indexes[i] == r.self {
		return r.indexes[j] != r.self
	}
	if r.indexes[j] == r.self {
		return false
	}
	return r.indexes[i] < r.indexes[j]
}
func (r *rowSorter) Swap(i, j int) {
	r.scores[i], r.scores[j] = r.scores[j], r.scores[i]
	r.indexes[i], r.indexes[j] = r.indexes[j], r.indexes[i]
}
