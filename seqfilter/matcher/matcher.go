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

// Package matcher scores one query sequence against the k-mer index:
// it enumerates similar k-mers at every position, accumulates
// per-target hit counters and ranks candidates by z-score against a
// Poisson null model.
package matcher

import (
	"math"
	"sort"

	"github.com/seqfilter/seqfilter/seqfilter/index"
	"github.com/seqfilter/seqfilter/seqfilter/kmergen"
	"github.com/seqfilter/seqfilter/seqfilter/matrix"
	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

// NoSelf disables self-hit suppression in MatchQuery.
const NoSelf = math.MaxUint32

// biasWindow is the window size of the composition bias correction.
const biasWindow = 40

// Hit is one prefiltering candidate.
type Hit struct {
	TargetID  uint32
	PrefScore int16   // accumulated k-mer hit count
	ZScore    float32 // standardized against the Poisson null
}

// Options configure one QueryTemplateMatcher.
type Options struct {
	KmerThr          int16
	KmerMatchProb    float64
	KmerSize         int
	DBSize           int // number of targets in the whole database
	MaxSeqLen        int
	MaxResListLen    int
	ZscoreThr        float64
	AABiasCorrection bool
}

// QueryTemplateMatcher holds the per-worker scratch for matching
// queries against one index table. It is strictly thread-local; the
// matrix, tables and target lengths are shared read-only.
type QueryTemplateMatcher struct {
	opt   Options
	table *index.Table
	gen   *kmergen.Generator

	targetSeqLens []uint32 // target id -> residue count

	mat *matrix.SubstitutionMatrix

	counters []uint16 // per-target hit accumulator, saturating
	touched  []uint32 // ids incremented since the last reset
	heap     hitHeap
	bias     []int16 // per-position threshold correction
	hits     []Hit
}

// New builds a matcher for sequence queries scored with the extended
// substitution matrices.
func New(opt Options, m *matrix.SubstitutionMatrix,
	two, three *matrix.ExtendedSubstitutionMatrix,
	table *index.Table, targetSeqLens []uint32) *QueryTemplateMatcher {
	q := newMatcher(opt, m, table, targetSeqLens)
	q.gen = kmergen.New(opt.KmerSize, opt.KmerThr, m, two, three)
	return q
}

// NewProfile builds a matcher for HMM profile queries scored with the
// per-position profile rows. The composition bias correction does not
// apply to profiles.
func NewProfile(opt Options, m *matrix.SubstitutionMatrix,
	table *index.Table, targetSeqLens []uint32) *QueryTemplateMatcher {
	opt.AABiasCorrection = false
	q := newMatcher(opt, m, table, targetSeqLens)
	q.gen = kmergen.NewProfile(opt.KmerSize, opt.KmerThr, m)
	return q
}

func newMatcher(opt Options, m *matrix.SubstitutionMatrix, table *index.Table, targetSeqLens []uint32) *QueryTemplateMatcher {
	q := &QueryTemplateMatcher{
		opt:           opt,
		mat:           m,
		table:         table,
		targetSeqLens: targetSeqLens,
		counters:      make([]uint16, opt.DBSize),
		touched:       make([]uint32, 0, opt.DBSize),
		heap:          make(hitHeap, 0, opt.MaxResListLen),
		hits:          make([]Hit, 0, opt.MaxResListLen),
	}
	if opt.AABiasCorrection {
		q.bias = make([]int16, opt.MaxSeqLen)
	}
	return q
}

// MatchQuery scores one query and returns the candidates ranked by
// descending z-score, target id ascending on ties, at most
// MaxResListLen entries. Pass selfID = NoSelf to keep self hits. The
// returned slice is reused by the next call.
func (q *QueryTemplateMatcher) MatchQuery(s *sequence.Sequence, selfID uint32) []Hit {
	if q.opt.AABiasCorrection {
		q.computeBias(s)
	}

	// O(touched) reset from the previous query
	for _, id := range q.touched {
		q.counters[id] = 0
	}
	q.touched = q.touched[:0]

	n := s.KmerCount(q.opt.KmerSize)
	var kmerListLen int
	var dbMatches int
	for pos := 0; pos < n; pos++ {
		var bias int16
		if q.bias != nil {
			bias = q.bias[pos]
		}
		kmers, _ := q.gen.Generate(s, pos, bias)
		kmerListLen += len(kmers)
		for _, w := range kmers {
			run := q.table.Lookup(w)
			dbMatches += len(run)
			for _, t := range run {
				if q.counters[t] == 0 {
					q.touched = append(q.touched, t)
				}
				if q.counters[t] != math.MaxUint16 {
					q.counters[t]++
				}
			}
		}
	}

	if n > 0 {
		s.Stats.KmersPerPos = float64(kmerListLen) / float64(n)
	} else {
		s.Stats.KmersPerPos = 0
	}
	s.Stats.DBMatches = dbMatches

	// rank by z-score against the Poisson null
	q.heap = q.heap[:0]
	L := float64(s.L)
	for _, t := range q.touched {
		if t == selfID {
			continue
		}
		raw := q.counters[t]
		mu := L * float64(q.targetSeqLens[t]) * q.opt.KmerMatchProb
		var z float64
		if mu > 0 {
			z = (float64(raw) - mu) / math.Sqrt(mu)
		} else {
			z = float64(raw)
		}
		if z < q.opt.ZscoreThr || q.opt.MaxResListLen == 0 {
			continue
		}
		h := Hit{TargetID: t, PrefScore: int16(min(int(raw), math.MaxInt16)), ZScore: float32(z)}
		if len(q.heap) < q.opt.MaxResListLen {
			q.heap.push(h)
		} else if q.heap.less(q.heap[0], h) {
			q.heap.replaceMin(h)
		}
	}

	q.hits = q.hits[:0]
	q.hits = append(q.hits, q.heap...)
	sort.Slice(q.hits, func(i, j int) bool {
		if q.hits[i].ZScore != q.hits[j].ZScore {
			return q.hits[i].ZScore > q.hits[j].ZScore
		}
		return q.hits[i].TargetID < q.hits[j].TargetID
	})
	return q.hits
}
