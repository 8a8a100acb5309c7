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

// Package kmergen enumerates, for a query k-mer, all k-mers whose
// substitution score reaches a threshold, in descending score order.
package kmergen

import (
	"sort"

	"github.com/seqfilter/seqfilter/seqfilter/matrix"
	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

// Generator enumerates similar k-mers via a branch-and-bound traversal
// over the k positions, divided into spans of two and three positions
// covered by the extended substitution matrices. Rows are sorted by
// descending score, so each branch is cut as soon as the best remaining
// completion cannot reach the threshold. One Generator per worker; the
// result buffers are reused across calls.
type Generator struct {
	K         int
	Threshold int16

	alphabetSize int
	spans        []int                 // position spans, e.g. [3 3] for k=6
	tables       []*matrix.ScoreMatrix // score rows per span, nil in profile mode
	mult         []int64               // k-mer index multiplier per span

	// profile mode: one single-position row per k position, rebuilt per
	// query position from the profile
	profile       bool
	profileScores [][]int16
	profileIdx    [][]uint32

	// per-call row scratch, avoids hot-path allocation
	scoreRows [][]int16
	indexRows [][]uint32

	kmers  []int64
	scores []int16
}

// divide splits k into spans of three and two positions.
func divide(k int) []int {
	var spans []int
	for k > 4 {
		spans = append(spans, 3)
		k -= 3
	}
	if k == 4 {
		return append(spans, 2, 2)
	}
	return append(spans, k)
}

// New builds a generator scoring with the extended substitution
// matrices (sequence queries).
func New(k int, threshold int16, m *matrix.SubstitutionMatrix,
	two, three *matrix.ExtendedSubstitutionMatrix) *Generator {
	g := &Generator{
		K:            k,
		Threshold:    threshold,
		alphabetSize: m.Size,
		spans:        divide(k),
	}
	g.tables = make([]*matrix.ScoreMatrix, len(g.spans))
	for i, span := range g.spans {
		switch span {
		case 2:
			g.tables[i] = &two.ScoreMatrix
		case 3:
			g.tables[i] = &three.ScoreMatrix
		}
	}
	g.initMult()
	g.scoreRows = make([][]int16, len(g.spans))
	g.indexRows = make([][]uint32, len(g.spans))
	g.kmers = make([]int64, 0, 1024)
	g.scores = make([]int16, 0, 1024)
	return g
}

// NewProfile builds a generator scoring with per-position profile rows
// (HMM profile queries). Spans are all single positions.
func NewProfile(k int, threshold int16, m *matrix.SubstitutionMatrix) *Generator {
	g := &Generator{
		K:            k,
		Threshold:    threshold,
		alphabetSize: m.Size,
		profile:      true,
	}
	g.spans = make([]int, k)
	g.profileScores = make([][]int16, k)
	g.profileIdx = make([][]uint32, k)
	for i := 0; i < k; i++ {
		g.spans[i] = 1
		g.profileScores[i] = make([]int16, m.Size)
		g.profileIdx[i] = make([]uint32, m.Size)
	}
	g.initMult()
	g.scoreRows = g.profileScores
	g.indexRows = g.profileIdx
	g.kmers = make([]int64, 0, 1024)
	g.scores = make([]int16, 0, 1024)
	return g
}

func (g *Generator) initMult() {
	g.mult = make([]int64, len(g.spans))
	m := int64(1)
	for i := len(g.spans) - 1; i >= 0; i-- {
		g.mult[i] = m
		for j := 0; j < g.spans[i]; j++ {
			m *= int64(g.alphabetSize)
		}
	}
}

// Generate enumerates all k-mers scoring at least Threshold+bias against
// the query k-mer at pos, sorted by descending score; bias is the local
// composition correction, raising the bar in low-complexity context.
// The returned slices are valid until the next call. K-mers containing
// the unknown symbol yield nothing.
func (g *Generator) Generate(s *sequence.Sequence, pos int, bias int16) ([]int64, []int16) {
	g.kmers = g.kmers[:0]
	g.scores = g.scores[:0]
	if s.HasUnknown(pos, g.K) {
		return g.kmers, g.scores
	}

	if g.profile {
		g.fillProfileRows(s, pos)
	} else {
		p := pos
		for d, span := range g.spans {
			var u uint32
			for _, c := range s.Int[p : p+span] {
				u = u*uint32(g.alphabetSize) + uint32(c)
			}
			g.scoreRows[d] = g.tables[d].Scores[u]
			g.indexRows[d] = g.tables[d].Indexes[u]
			p += span
		}
	}

	// suffix maxima of the per-span best scores, for pruning
	nd := len(g.spans)
	var maxRem [8]int16
	maxRem[nd] = 0
	for d := nd - 1; d >= 0; d-- {
		maxRem[d] = maxRem[d+1] + g.scoreRows[d][0]
	}

	g.descend(g.scoreRows, g.indexRows, maxRem[:], 0, 0, 0, g.Threshold+bias)

	sort.Sort(&listSorter{g.kmers, g.scores})
	return g.kmers, g.scores
}

// descend walks one span level of the branch-and-bound traversal.
func (g *Generator) descend(scoreRows [][]int16, indexRows [][]uint32,
	maxRem []int16, d int, acc int16, kmer int64, thr int16) {
	if d == len(g.spans) {
		g.kmers = append(g.kmers, kmer)
		g.scores = append(g.scores, acc)
		return
	}
	row := scoreRows[d]
	idx := indexRows[d]
	for j := 0; j < len(row); j++ {
		s := acc + row[j]
		if s+maxRem[d+1] < thr {
			break // rows are sorted, nothing below can reach thr
		}
		g.descend(scoreRows, indexRows, maxRem, d+1, s,
			kmer+int64(idx[j])*g.mult[d], thr)
	}
}

// fillProfileRows sorts the profile rows of the k positions starting at
// pos into the reusable row buffers.
func (g *Generator) fillProfileRows(s *sequence.Sequence, pos int) {
	for d := 0; d < g.K; d++ {
		row := s.Profile[pos+d]
		scores := g.profileScores[d]
		idx := g.profileIdx[d]
		for a := range scores {
			scores[a] = row[a]
			idx[a] = uint32(a)
		}
		sort.Sort(&rowSorter{scores, idx})
	}
}

type rowSorter struct {
	scores []int16
	idx    []uint32
}

func (r *rowSorter) Len() int { return len(r.scores) }
func (r *rowSorter) Less(i, j int) bool {
	if r.scores[i] != r.scores[j] {
		return r.scores[i] > r.scores[j]
	}
	return r.idx[i] < r.idx[j]
}
func (r *rowSorter) Swap(i, j int) {
	r.scores[i], r.scores[j] = r.scores[j], r.scores[i]
	r.idx[i], r.idx[j] = r.idx[j], r.idx[i]
}

type listSorter struct {
	kmers  []int64
	scores []int16
}

func (l *listSorter) Len() int { return len(l.kmers) }
func (l *listSorter) Less(i, j int) bool {
	if l.scores[i] != l.scores[j] {
		return l.scores[i] > l.scores[j]
	}
	return l.kmers[i] < l.kmers[j]
}
func (l *listSorter) Swap(i, j int) {
	l.kmers[i], l.kmers[j] = l.kmers[j], l.kmers[i]
	l.scores[i], l.scores[j] = l.scores[j], l.scores[i]
}
