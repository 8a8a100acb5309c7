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

package sequence

import (
	"testing"

	"github.com/seqfilter/seqfilter/seqfilter/matrix"
)

func TestMap(t *testing.T) {
	m := matrix.NewAminoAcidMatrix(8.0)
	s := New(100, AminoAcids, m)

	s.Map(3, 42, []byte("ACDEF\n\x00"))
	if s.ID != 3 || s.Key != 42 {
		t.Errorf("id/key not kept: %d/%d", s.ID, s.Key)
	}
	if s.L != 5 {
		t.Fatalf("length: %d, expected 5 (trailing NUL and newline ignored)", s.L)
	}
	for i, a := range []byte("ACDEF") {
		if s.Int[i] != m.Aa2Num[a] {
			t.Errorf("residue %d: %d, expected %d", i, s.Int[i], m.Aa2Num[a])
		}
	}
	if s.Truncated {
		t.Error("short blob marked truncated")
	}

	// letters outside the alphabet become the unknown symbol
	s.Map(4, 43, []byte("AB1A"))
	if s.Int[1] != m.Unknown || s.Int[2] != m.Unknown {
		t.Error("B and 1 should map to the unknown symbol")
	}
}

func TestMapUnknownLetters(t *testing.T) {
	m := matrix.NewAminoAcidMatrix(8.0)
	s := New(100, AminoAcids, m)
	s.Map(0, 0, []byte("AZJOA"))
	for _, i := range []int{1, 2, 3} {
		if s.Int[i] != m.Unknown {
			t.Errorf("position %d should be unknown, got %d", i, s.Int[i])
		}
	}
}

func TestMapTruncation(t *testing.T) {
	m := matrix.NewAminoAcidMatrix(8.0)
	s := New(4, AminoAcids, m)
	s.Map(0, 7, []byte("ACDEFGHIK"))
	if !s.Truncated {
		t.Error("long blob not marked truncated")
	}
	if s.L != 4 {
		t.Errorf("truncated length: %d, expected 4", s.L)
	}
}

func TestKmerCountAndUnknown(t *testing.T) {
	m := matrix.NewNucleotideMatrix(8.0)
	s := New(100, Nucleotides, m)
	s.Map(0, 0, []byte("ACGNACG"))

	if n := s.KmerCount(4); n != 4 {
		t.Errorf("k-mer count: %d, expected 4", n)
	}
	wantUnknown := []bool{true, true, true, true}
	for pos, want := range wantUnknown {
		if got := s.HasUnknown(pos, 4); got != want {
			t.Errorf("HasUnknown(%d, 4) = %v, expected %v", pos, got, want)
		}
	}
	if s.HasUnknown(4, 3) {
		t.Error("ACG should not contain the unknown symbol")
	}

	s.Map(1, 1, []byte("AC"))
	if n := s.KmerCount(4); n != 0 {
		t.Errorf("k-mer count of a short sequence: %d, expected 0", n)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	m := matrix.NewAminoAcidMatrix(8.0)

	L := 6
	rows := make([][]int16, L)
	letters := []byte("ACDEFG")
	for i := range rows {
		rows[i] = make([]int16, m.Size)
		for a := range rows[i] {
			rows[i][a] = int16(i*m.Size+a) - 50
		}
	}
	blob := WriteProfileBlob(rows, letters)

	s := New(100, HMMProfile, m)
	s.MapProfile(9, 99, blob)
	if s.L != L {
		t.Fatalf("profile length: %d, expected %d", s.L, L)
	}
	for i := 0; i < L; i++ {
		if s.Int[i] != m.Aa2Num[letters[i]] {
			t.Errorf("consensus residue %d: %d, expected %d", i, s.Int[i], m.Aa2Num[letters[i]])
		}
		for a := 0; a < m.Size; a++ {
			if s.Profile[i][a] != rows[i][a] {
				t.Fatalf("profile score (%d,%d): %d, expected %d", i, a, s.Profile[i][a], rows[i][a])
			}
		}
	}
}

func TestProfileMalformed(t *testing.T) {
	m := matrix.NewAminoAcidMatrix(8.0)
	s := New(100, HMMProfile, m)

	s.MapProfile(0, 0, []byte("not a profile"))
	if s.L != 0 {
		t.Errorf("malformed profile should map to an empty sequence, got L=%d", s.L)
	}
}
