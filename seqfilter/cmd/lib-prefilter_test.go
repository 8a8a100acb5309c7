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

package cmd

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/seqfilter/seqfilter/seqfilter/ffindex"
	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

var testTargets = []string{
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

func writeSeqStore(t *testing.T, base string, seqs []string) {
	writeSeqStoreKeys(t, base, seqs, 0)
}

// writeSeqStoreKeys writes one entry per sequence with keys starting at
// keyOffset; query keys absent from the target store bypass self-hit
// suppression.
func writeSeqStoreKeys(t *testing.T, base string, seqs []string, keyOffset uint64) {
	t.Helper()
	w := ffindex.NewWriter(base, 1)
	if err := w.Open(); err != nil {
		t.Fatal(err)
	}
	for i, seq := range seqs {
		if err := w.Write([]byte(seq+"\n"), keyOffset+uint64(i), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

// testOptions returns prefiltering options over toy nucleotide stores
// with a fixed threshold, skipping the calibration.
func testOptions(queryDB, targetDB, outDB string) *PrefilteringOptions {
	return &PrefilteringOptions{
		QueryDB:  queryDB,
		TargetDB: targetDB,
		OutDB:    outDB,

		Sensitivity:   4.0,
		KmerSize:      4,
		MaxResListLen: 10,
		AlphabetSize:  5,
		ZscoreThr:     0,
		MaxSeqLen:     1024,

		QuerySeqType:  sequence.Nucleotides,
		TargetSeqType: sequence.Nucleotides,

		KmerThreshold: 64, // exact 4-mer matches only
		KmerMatchProb: 1e-6,

		BufferSize: 1 << 20,
		ShardCount: 1,
		NumCPUs:    2,
	}
}

// readResults parses all result blobs of an output store: key -> lines.
func readResults(t *testing.T, base string) map[uint64][]string {
	t.Helper()
	r, err := ffindex.Open(base, ffindex.NoSort)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	out := make(map[uint64][]string)
	for id := uint32(0); id < uint32(r.Size()); id++ {
		blob := strings.TrimRight(string(r.Data(id)), "\n")
		if blob == "" {
			out[r.DbKey(id)] = nil
			continue
		}
		out[r.DbKey(id)] = strings.Split(blob, "\n")
	}
	return out
}

func topHitKey(t *testing.T, line string) uint64 {
	t.Helper()
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		t.Fatalf("invalid result line: %q", line)
	}
	key, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestPrefilteringToyIdentity(t *testing.T) {
	dir := t.TempDir()
	queryDB := filepath.Join(dir, "query")
	targetDB := filepath.Join(dir, "target")
	outDB := filepath.Join(dir, "out")
	// query keys start at 100 so no query key exists in the target
	// store and self-hit suppression stays out of the way
	writeSeqStoreKeys(t, queryDB, testTargets, 100)
	writeSeqStore(t, targetDB, testTargets)

	p, err := NewPrefiltering(testOptions(queryDB, targetDB, outDB))
	if err != nil {
		t.Fatal(err)
	}
	if err = p.Run(); err != nil {
		t.Fatal(err)
	}

	results := readResults(t, outDB)
	if len(results) != len(testTargets) {
		t.Fatalf("%d result blobs, expected %d", len(results), len(testTargets))
	}
	for key, lines := range results {
		if len(lines) == 0 {
			t.Fatalf("query %d: no hits", key)
		}
		if top := topHitKey(t, lines[0]); top != key-100 {
			t.Errorf("query %d: top hit is %d, expected %d", key, top, key-100)
		}
	}
}

func TestPrefilteringSelfSuppression(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "db")
	outDB := filepath.Join(dir, "out")
	writeSeqStore(t, db, testTargets)

	// query db == target db: self hits are suppressed
	p, err := NewPrefiltering(testOptions(db, db, outDB))
	if err != nil {
		t.Fatal(err)
	}
	if err = p.Run(); err != nil {
		t.Fatal(err)
	}

	for key, lines := range readResults(t, outDB) {
		for _, line := range lines {
			if topHitKey(t, line) == key {
				t.Errorf("query %d: self hit not suppressed", key)
			}
		}
	}
}

func TestPrefilteringEmptyQuery(t *testing.T) {
	dir := t.TempDir()
	queryDB := filepath.Join(dir, "query")
	targetDB := filepath.Join(dir, "target")
	outDB := filepath.Join(dir, "out")
	writeSeqStore(t, queryDB, []string{"NNNNNNNNNNNN"})
	writeSeqStore(t, targetDB, testTargets)

	p, err := NewPrefiltering(testOptions(queryDB, targetDB, outDB))
	if err != nil {
		t.Fatal(err)
	}
	if err = p.Run(); err != nil {
		t.Fatal(err)
	}

	results := readResults(t, outDB)
	if lines := results[0]; len(lines) != 0 {
		t.Errorf("all-unknown query produced %d hits", len(lines))
	}
	if p.notEmpty[0] != 0 {
		t.Error("all-unknown query flagged as not empty")
	}
}

func TestPrefilteringSplitEquivalence(t *testing.T) {
	dir := t.TempDir()
	queryDB := filepath.Join(dir, "query")
	targetDB := filepath.Join(dir, "target")
	writeSeqStore(t, queryDB, testTargets)
	writeSeqStore(t, targetDB, testTargets)

	outWhole := filepath.Join(dir, "out_whole")
	p, err := NewPrefiltering(testOptions(queryDB, targetDB, outWhole))
	if err != nil {
		t.Fatal(err)
	}
	if err = p.Run(); err != nil {
		t.Fatal(err)
	}

	outSplit := filepath.Join(dir, "out_split")
	opt := testOptions(queryDB, targetDB, outSplit)
	opt.SplitSize = len(testTargets) / 3
	p, err = NewPrefiltering(opt)
	if err != nil {
		t.Fatal(err)
	}
	if err = p.Run(); err != nil {
		t.Fatal(err)
	}

	whole := readResults(t, outWhole)
	split := readResults(t, outSplit)
	if len(whole) != len(split) {
		t.Fatalf("different number of result blobs: %d vs %d", len(whole), len(split))
	}
	for key, lines := range whole {
		other := split[key]
		if len(lines) != len(other) {
			t.Fatalf("query %d: %d hits in the whole run, %d after splits", key, len(lines), len(other))
		}
		for i := range lines {
			if lines[i] != other[i] {
				t.Errorf("query %d line %d differs: %q vs %q", key, i, lines[i], other[i])
			}
		}
	}

	// temporary split stores are removed
	matches, _ := filepath.Glob(outSplit + "_tmp_*")
	if len(matches) != 0 {
		t.Errorf("temporary split stores left behind: %v", matches)
	}
}

func TestPrefilteringOverflowSkip(t *testing.T) {
	dir := t.TempDir()
	queryDB := filepath.Join(dir, "query")
	targetDB := filepath.Join(dir, "target")
	outDB := filepath.Join(dir, "out")
	writeSeqStoreKeys(t, queryDB, testTargets, 100)
	writeSeqStore(t, targetDB, testTargets)

	opt := testOptions(queryDB, targetDB, outDB)
	opt.BufferSize = 4 // any hit line is longer than this
	p, err := NewPrefiltering(opt)
	if err != nil {
		t.Fatal(err)
	}
	if err = p.Run(); err != nil {
		t.Fatal(err)
	}

	for key, lines := range readResults(t, outDB) {
		if len(lines) != 0 {
			t.Errorf("query %d: %d hits although every blob overflows the buffer", key, len(lines))
		}
	}
	for id, flag := range p.notEmpty {
		if flag != 0 {
			t.Errorf("query %d counted as not empty although skipped", id)
		}
	}
}

func TestPrefilteringShardedRun(t *testing.T) {
	dir := t.TempDir()
	queryDB := filepath.Join(dir, "query")
	targetDB := filepath.Join(dir, "target")
	writeSeqStore(t, queryDB, testTargets)
	writeSeqStore(t, targetDB, testTargets)

	// run the non-zero ranks first, rank 0 merges afterwards
	outDB := filepath.Join(dir, "out")
	for rank := 2; rank >= 0; rank-- {
		opt := testOptions(queryDB, targetDB, outDB)
		opt.ShardCount = 3
		opt.ShardRank = rank
		p, err := NewPrefiltering(opt)
		if err != nil {
			t.Fatal(err)
		}
		if err = p.Run(); err != nil {
			t.Fatal(err)
		}
	}

	outWhole := filepath.Join(dir, "out_whole")
	p, err := NewPrefiltering(testOptions(queryDB, targetDB, outWhole))
	if err != nil {
		t.Fatal(err)
	}
	if err = p.Run(); err != nil {
		t.Fatal(err)
	}

	whole := readResults(t, outWhole)
	sharded := readResults(t, outDB)
	for key, lines := range whole {
		other := sharded[key]
		if len(lines) != len(other) {
			t.Fatalf("query %d: %d hits unsharded, %d sharded", key, len(lines), len(other))
		}
		for i := range lines {
			if lines[i] != other[i] {
				t.Errorf("query %d line %d differs: %q vs %q", key, i, lines[i], other[i])
			}
		}
	}
}

func TestDecomposeDomain(t *testing.T) {
	for _, tc := range []struct {
		size, world int
	}{
		{10, 3}, {7, 7}, {5, 2}, {100, 1}, {3, 5},
	} {
		covered := 0
		prevTo := 0
		for rank := 0; rank < tc.world; rank++ {
			from, to := decomposeDomain(tc.size, rank, tc.world)
			if from != prevTo {
				t.Errorf("size=%d world=%d rank=%d: range not contiguous", tc.size, tc.world, rank)
			}
			covered += to - from
			prevTo = to
		}
		if covered != tc.size {
			t.Errorf("size=%d world=%d: covered %d", tc.size, tc.world, covered)
		}
		// remainder goes to the lowest ranks
		from0, to0 := decomposeDomain(tc.size, 0, tc.world)
		fromL, toL := decomposeDomain(tc.size, tc.world-1, tc.world)
		if to0-from0 < toL-fromL {
			t.Errorf("size=%d world=%d: rank 0 smaller than the last rank", tc.size, tc.world)
		}
	}
}

func TestRunInfoFile(t *testing.T) {
	dir := t.TempDir()
	queryDB := filepath.Join(dir, "query")
	targetDB := filepath.Join(dir, "target")
	outDB := filepath.Join(dir, "out")
	writeSeqStore(t, queryDB, testTargets)
	writeSeqStore(t, targetDB, testTargets)

	p, err := NewPrefiltering(testOptions(queryDB, targetDB, outDB))
	if err != nil {
		t.Fatal(err)
	}
	if err = p.Run(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outDB + ".info.toml")
	if err != nil {
		t.Fatal(err)
	}
	var info runInfo
	if err = toml.Unmarshal(data, &info); err != nil {
		t.Fatal(err)
	}
	if info.KmerSize != 4 || info.KmerThreshold != 64 {
		t.Errorf("unexpected run info: %+v", info)
	}
	if info.Queries != len(testTargets) || info.Targets != len(testTargets) {
		t.Errorf("unexpected store sizes in run info: %+v", info)
	}
}

func TestCheckOptionsFatal(t *testing.T) {
	base := testOptions("q", "t", "o")

	opt := *base
	opt.KmerSize = 3
	if err := CheckPrefilteringOptions(&opt); err == nil {
		t.Error("k=3 accepted")
	}
	opt = *base
	opt.TargetSeqType = sequence.HMMProfile
	if err := CheckPrefilteringOptions(&opt); err == nil {
		t.Error("profile targets accepted")
	}
	opt = *base
	opt.KmerThreshold = 10
	opt.KmerMatchProb = 0
	if err := CheckPrefilteringOptions(&opt); err == nil {
		t.Error("manual threshold without match probability accepted")
	}
	opt = *base
	opt.ShardCount = 4
	opt.ShardRank = 4
	if err := CheckPrefilteringOptions(&opt); err == nil {
		t.Error("out-of-range shard rank accepted")
	}
}
