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

// Package index provides the inverted k-mer table mapping every k-mer
// to the target ids containing it, built in two passes over a target
// range and immutable afterwards.
package index

import (
	"github.com/twotwotwo/sorts/sortutil"

	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

// Table is an inverted map from integer-encoded k-mers to target ids.
// All runs share one backing array; offsets[w] is the start of the run
// of k-mer w and offsets[tableSize] the total entry count. A Table is
// built once per target split and discarded with it; after duplicate
// removal the backing array keeps its unused tail.
type Table struct {
	AlphabetSize int
	KmerSize     int
	Skip         int // sample every skip+1-th position

	tableSize int64 // |A|^k
	counts    []int32
	offsets   []int64
	entries   []uint32
	cursor    []int32 // per-k-mer write position during the second pass

	initialized bool
}

// New allocates the counting stage of a table. Positions are subsampled
// with stride skip >= 0: every (skip+1)-th k-mer start contributes.
func New(alphabetSize, kmerSize, skip int) *Table {
	size := int64(1)
	for i := 0; i < kmerSize; i++ {
		size *= int64(alphabetSize)
	}
	return &Table{
		AlphabetSize: alphabetSize,
		KmerSize:     kmerSize,
		Skip:         skip,
		tableSize:    size,
		counts:       make([]int32, size),
	}
}

// TableSize returns |A|^k.
func (t *Table) TableSize() int64 { return t.tableSize }

// kmerAt encodes the k-mer starting at pos in base |A|, most significant
// position first.
func (t *Table) kmerAt(s *sequence.Sequence, pos int) int64 {
	var w int64
	for _, c := range s.Int[pos : pos+t.KmerSize] {
		w = w*int64(t.AlphabetSize) + int64(c)
	}
	return w
}

// AddKmerCount runs the first pass over one sequence: counting every
// sampled k-mer not containing the unknown symbol.
func (t *Table) AddKmerCount(s *sequence.Sequence) {
	n := s.KmerCount(t.KmerSize)
	for pos := 0; pos < n; pos += t.Skip + 1 {
		if s.HasUnknown(pos, t.KmerSize) {
			continue
		}
		t.counts[t.kmerAt(s, pos)]++
	}
}

// Init converts the counters into the offset array by prefix sum and
// allocates the backing entries array. Must be called between the two
// passes.
func (t *Table) Init() {
	t.offsets = make([]int64, t.tableSize+1)
	var total int64
	for w := int64(0); w < t.tableSize; w++ {
		t.offsets[w] = total
		total += int64(t.counts[w])
	}
	t.offsets[t.tableSize] = total
	t.entries = make([]uint32, total)
	t.cursor = t.counts // reuse the count array as write cursors
	for i := range t.cursor {
		t.cursor[i] = 0
	}
	t.counts = nil
	t.initialized = true
}

// AddSequence runs the second pass over one sequence: writing the
// target id into every sampled k-mer's run.
func (t *Table) AddSequence(s *sequence.Sequence) {
	n := s.KmerCount(t.KmerSize)
	for pos := 0; pos < n; pos += t.Skip + 1 {
		if s.HasUnknown(pos, t.KmerSize) {
			continue
		}
		w := t.kmerAt(s, pos)
		t.entries[t.offsets[w]+int64(t.cursor[w])] = s.ID
		t.cursor[w]++
	}
}

// RemoveDuplicateEntries sorts every run ascending and collapses
// repeated ids, compacting runs toward the front of the backing array.
// The offsets shrink accordingly; entries past the new total are unused.
func (t *Table) RemoveDuplicateEntries() {
	var write int64
	prevStart := t.offsets[0]
	for w := int64(0); w < t.tableSize; w++ {
		start, end := prevStart, t.offsets[w+1]
		prevStart = end
		run := t.entries[start:end]
		if len(run) > 1 {
			sortutil.Uint32s(run)
		}
		t.offsets[w] = write
		var last uint32
		for i, id := range run {
			if i > 0 && id == last {
				continue
			}
			t.entries[write] = id
			write++
			last = id
		}
	}
	t.offsets[t.tableSize] = write
	t.cursor = nil
}

// Lookup returns the run of target ids for k-mer w. The slice aliases
// the backing array and must not be modified.
func (t *Table) Lookup(w int64) []uint32 {
	return t.entries[t.offsets[w]:t.offsets[w+1]]
}

// EntryCount returns the total number of entries.
func (t *Table) EntryCount() int64 {
	return t.offsets[t.tableSize]
}
