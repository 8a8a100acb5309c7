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

package index

import (
	"testing"

	"github.com/seqfilter/seqfilter/seqfilter/matrix"
	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

// buildTable runs the full two-pass construction over the given target
// sequences with ids 0..n-1.
func buildTable(t *testing.T, seqs []string, k, skip int) (*Table, *matrix.SubstitutionMatrix) {
	t.Helper()
	m := matrix.NewNucleotideMatrix(8.0)
	s := sequence.New(1024, sequence.Nucleotides, m)

	table := New(m.Size, k, skip)
	for id, seq := range seqs {
		s.Map(uint32(id), uint64(id), []byte(seq))
		table.AddKmerCount(s)
	}
	table.Init()
	for id, seq := range seqs {
		s.Map(uint32(id), uint64(id), []byte(seq))
		table.AddSequence(s)
	}
	table.RemoveDuplicateEntries()
	return table, m
}

// bruteKmers returns the sampled k-mers of a sequence, unknowns
// excluded, as base-|A| integers.
func bruteKmers(m *matrix.SubstitutionMatrix, seq string, k, skip int) []int64 {
	var kmers []int64
	for pos := 0; pos+k <= len(seq); pos += skip + 1 {
		w := int64(0)
		ok := true
		for _, c := range []byte(seq[pos : pos+k]) {
			code := m.Aa2Num[c]
			if code == m.Unknown {
				ok = false
				break
			}
			w = w*int64(m.Size) + int64(code)
		}
		if ok {
			kmers = append(kmers, w)
		}
	}
	return kmers
}

func TestTableSoundness(t *testing.T) {
	seqs := []string{
		"ACGTACGTAC",
		"TTTTTTTTTT",
		"ACGTTGCAAC",
		"GGGCCCAAAT",
		"ACGNNNNGTA", // unknowns must never be indexed
	}
	k := 4
	table, m := buildTable(t, seqs, k, 0)

	// expected: k-mer -> set of ids
	expected := make(map[int64]map[uint32]bool)
	for id, seq := range seqs {
		for _, w := range bruteKmers(m, seq, k, 0) {
			if expected[w] == nil {
				expected[w] = make(map[uint32]bool)
			}
			expected[w][uint32(id)] = true
		}
	}

	for w := int64(0); w < table.TableSize(); w++ {
		run := table.Lookup(w)
		if len(run) != len(expected[w]) {
			t.Fatalf("k-mer %d: %d entries, expected %d", w, len(run), len(expected[w]))
		}
		for i, id := range run {
			if !expected[w][id] {
				t.Errorf("k-mer %d: unexpected id %d", w, id)
			}
			if i > 0 && run[i-1] >= id {
				t.Errorf("k-mer %d: ids not strictly increasing", w)
			}
		}
	}
}

func TestTableSkip(t *testing.T) {
	seqs := []string{"ACGTACGTACGT"}
	k := 4
	skip := 2
	table, m := buildTable(t, seqs, k, skip)

	expected := make(map[int64]bool)
	for _, w := range bruteKmers(m, seqs[0], k, skip) {
		expected[w] = true
	}
	var total int64
	for w := int64(0); w < table.TableSize(); w++ {
		run := table.Lookup(w)
		total += int64(len(run))
		if len(run) > 0 && !expected[w] {
			t.Errorf("k-mer %d indexed although not sampled", w)
		}
	}
	if total != int64(len(expected)) {
		t.Errorf("total entries: %d, expected %d", total, len(expected))
	}
}

func TestTableDuplicateRemoval(t *testing.T) {
	// the same k-mer several times in one sequence yields one entry
	table, m := buildTable(t, []string{"ACACACACAC"}, 2, 0)

	ac := int64(m.Aa2Num['A'])*int64(m.Size) + int64(m.Aa2Num['C'])
	if run := table.Lookup(ac); len(run) != 1 || run[0] != 0 {
		t.Errorf("run of AC: %v, expected [0]", run)
	}
	ca := int64(m.Aa2Num['C'])*int64(m.Size) + int64(m.Aa2Num['A'])
	if run := table.Lookup(ca); len(run) != 1 || run[0] != 0 {
		t.Errorf("run of CA: %v, expected [0]", run)
	}
	if table.EntryCount() != 2 {
		t.Errorf("entry count: %d, expected 2", table.EntryCount())
	}
}

func TestTableCountMatchesFill(t *testing.T) {
	seqs := []string{"ACGTACGT", "GTACGTAC", "CCCCGGGG"}
	m := matrix.NewNucleotideMatrix(8.0)
	s := sequence.New(1024, sequence.Nucleotides, m)

	table := New(m.Size, 3, 0)
	for id, seq := range seqs {
		s.Map(uint32(id), uint64(id), []byte(seq))
		table.AddKmerCount(s)
	}
	table.Init()
	counted := table.EntryCount()
	for id, seq := range seqs {
		s.Map(uint32(id), uint64(id), []byte(seq))
		table.AddSequence(s)
	}

	var want int64
	for _, seq := range seqs {
		want += int64(len(bruteKmers(m, seq, 3, 0)))
	}
	if counted != want {
		t.Errorf("counted entries: %d, expected %d", counted, want)
	}
}
