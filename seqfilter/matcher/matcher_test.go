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

package matcher

import (
	"testing"

	"github.com/seqfilter/seqfilter/seqfilter/index"
	"github.com/seqfilter/seqfilter/seqfilter/matrix"
	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

// testDB bundles a small nucleotide target set with its index table.
type testDB struct {
	m       *matrix.SubstitutionMatrix
	two     *matrix.ExtendedSubstitutionMatrix
	three   *matrix.ExtendedSubstitutionMatrix
	table   *index.Table
	seqLens []uint32
	targets []string
}

func newTestDB(t *testing.T, targets []string, k int) *testDB {
	t.Helper()
	db := &testDB{
		m:       matrix.NewNucleotideMatrix(8.0),
		targets: targets,
	}
	db.two = matrix.NewExtendedSubstitutionMatrix(db.m, 2)
	db.three = matrix.NewExtendedSubstitutionMatrix(db.m, 3)

	s := sequence.New(1024, sequence.Nucleotides, db.m)
	db.table = index.New(db.m.Size, k, 0)
	for id, seq := range targets {
		s.Map(uint32(id), uint64(id), []byte(seq))
		db.table.AddKmerCount(s)
	}
	db.table.Init()
	for id, seq := range targets {
		s.Map(uint32(id), uint64(id), []byte(seq))
		db.table.AddSequence(s)
	}
	db.table.RemoveDuplicateEntries()

	db.seqLens = make([]uint32, len(targets))
	for id, seq := range targets {
		db.seqLens[id] = uint32(len(seq))
	}
	return db
}

func (db *testDB) newMatcher(opt Options) *QueryTemplateMatcher {
	opt.DBSize = len(db.targets)
	return New(opt, db.m, db.two, db.three, db.table, db.seqLens)
}

// identity threshold for k=4 over the nucleotide matrix: only exact
// k-mer matches score 4*16 = 64.
const identThr = 64

var toyTargets = []string{
	"ACGTACGTACGTACGTACGT",
	"TGCATGCATGCATGCATGCA",
	"AAAACCCCGGGGTTTTACGT",
	"CCGGAATTCCGGAATTCCGG",
	"GGCCGGCCGGCCGGCCGGCC",
	"ATATATATATATATATATAT",
	"CACACACACACACACACACA",
	"GTGTGTGTGTGTGTGTGTGT",
	"TTAACCGGTTAACCGGTTAA",
	"ACGTTGCAACGTTGCAACGT",
}

func defaultOptions() Options {
	return Options{
		KmerThr:       identThr,
		KmerMatchProb: 1e-6,
		KmerSize:      4,
		MaxSeqLen:     1024,
		MaxResListLen: 10,
		ZscoreThr:     0,
	}
}

func TestToyIdentity(t *testing.T) {
	db := newTestDB(t, toyTargets, 4)
	q := db.newMatcher(defaultOptions())
	s := sequence.New(1024, sequence.Nucleotides, db.m)

	for id, target := range toyTargets {
		s.Map(uint32(id), uint64(id), []byte(target))

		hits := q.MatchQuery(s, NoSelf)
		if len(hits) == 0 {
			t.Fatalf("query %d: no hits", id)
		}
		if hits[0].TargetID != uint32(id) {
			t.Errorf("query %d: top hit is %d, expected itself", id, hits[0].TargetID)
		}
	}
}

func TestSelfSuppression(t *testing.T) {
	db := newTestDB(t, toyTargets, 4)
	q := db.newMatcher(defaultOptions())
	s := sequence.New(1024, sequence.Nucleotides, db.m)

	for id, target := range toyTargets {
		s.Map(uint32(id), uint64(id), []byte(target))
		hits := q.MatchQuery(s, uint32(id))
		for _, h := range hits {
			if h.TargetID == uint32(id) {
				t.Fatalf("query %d: self hit not suppressed", id)
			}
		}
	}
}

func TestRanking(t *testing.T) {
	db := newTestDB(t, toyTargets, 4)
	opt := defaultOptions()
	opt.MaxResListLen = 3
	q := db.newMatcher(opt)
	s := sequence.New(1024, sequence.Nucleotides, db.m)

	for id, target := range toyTargets {
		s.Map(uint32(id), uint64(id), []byte(target))
		hits := q.MatchQuery(s, NoSelf)
		if len(hits) > 3 {
			t.Fatalf("query %d: %d hits, expected at most 3", id, len(hits))
		}
		for i := 1; i < len(hits); i++ {
			if hits[i].ZScore > hits[i-1].ZScore {
				t.Fatalf("query %d: hits not sorted by descending z-score", id)
			}
			if hits[i].ZScore == hits[i-1].ZScore && hits[i].TargetID <= hits[i-1].TargetID {
				t.Fatalf("query %d: z-score tie not broken by ascending target id", id)
			}
		}
	}
}

func TestTopListEviction(t *testing.T) {
	// all targets identical: every one matches the query equally; with
	// a capped list the lowest target ids must survive the tie-break
	targets := make([]string, 8)
	for i := range targets {
		targets[i] = "ACGTACGTACGTACGT"
	}
	db := newTestDB(t, targets, 4)
	opt := defaultOptions()
	opt.MaxResListLen = 4
	q := db.newMatcher(opt)

	s := sequence.New(1024, sequence.Nucleotides, db.m)
	s.Map(0, 0, []byte(targets[0]))
	hits := q.MatchQuery(s, NoSelf)
	if len(hits) != 4 {
		t.Fatalf("%d hits, expected 4", len(hits))
	}
	for i, h := range hits {
		if h.TargetID != uint32(i) {
			t.Errorf("hit %d: target %d, expected %d", i, h.TargetID, i)
		}
	}
}

func TestUnknownOnlyQuery(t *testing.T) {
	db := newTestDB(t, toyTargets, 4)
	q := db.newMatcher(defaultOptions())
	s := sequence.New(1024, sequence.Nucleotides, db.m)

	s.Map(0, 0, []byte("NNNNNNNNNNNN"))
	hits := q.MatchQuery(s, NoSelf)
	if len(hits) != 0 {
		t.Fatalf("%d hits for an all-unknown query, expected 0", len(hits))
	}
	if s.Stats.KmersPerPos != 0 || s.Stats.DBMatches != 0 {
		t.Errorf("statistics not zero: %f k-mers per position, %d matches",
			s.Stats.KmersPerPos, s.Stats.DBMatches)
	}
}

func TestZscoreThreshold(t *testing.T) {
	db := newTestDB(t, toyTargets, 4)
	opt := defaultOptions()
	opt.ZscoreThr = 1e9 // nothing can reach it
	q := db.newMatcher(opt)
	s := sequence.New(1024, sequence.Nucleotides, db.m)

	s.Map(0, 0, []byte(toyTargets[0]))
	if hits := q.MatchQuery(s, NoSelf); len(hits) != 0 {
		t.Errorf("%d hits above an unreachable z-score threshold", len(hits))
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	// raising the k-mer threshold must not increase the workload
	db := newTestDB(t, toyTargets, 4)
	s := sequence.New(1024, sequence.Nucleotides, db.m)

	var prevKmers float64 = -1
	var prevMatches = -1
	first := true
	for _, thr := range []int16{16, 32, 48, 64} {
		opt := defaultOptions()
		opt.KmerThr = thr
		q := db.newMatcher(opt)
		s.Map(0, 0, []byte(toyTargets[0]))
		q.MatchQuery(s, NoSelf)
		if !first {
			if s.Stats.KmersPerPos > prevKmers {
				t.Errorf("threshold %d: k-mers per position grew from %f to %f",
					thr, prevKmers, s.Stats.KmersPerPos)
			}
			if s.Stats.DBMatches > prevMatches {
				t.Errorf("threshold %d: DB matches grew from %d to %d",
					thr, prevMatches, s.Stats.DBMatches)
			}
		}
		prevKmers = s.Stats.KmersPerPos
		prevMatches = s.Stats.DBMatches
		first = false
	}
}

func TestCounterResetBetweenQueries(t *testing.T) {
	db := newTestDB(t, toyTargets, 4)
	q := db.newMatcher(defaultOptions())
	s := sequence.New(1024, sequence.Nucleotides, db.m)

	s.Map(0, 0, []byte(toyTargets[0]))
	first := q.MatchQuery(s, NoSelf)
	firstTop := first[0]

	// an unrelated query in between must not leak counters
	s.Map(1, 1, []byte(toyTargets[4]))
	q.MatchQuery(s, NoSelf)

	s.Map(0, 0, []byte(toyTargets[0]))
	again := q.MatchQuery(s, NoSelf)
	if again[0] != firstTop {
		t.Errorf("matcher state leaked between queries: %v vs %v", again[0], firstTop)
	}
}
