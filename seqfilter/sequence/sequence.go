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

// Package sequence wraps raw store blobs as integer-encoded sequences
// with a reusable buffer, per-query statistics and optional
// position-specific profiles.
package sequence

import (
	"github.com/seqfilter/seqfilter/seqfilter/matrix"
)

// SeqType selects how a blob is interpreted and scored.
type SeqType int

const (
	AminoAcids SeqType = iota
	Nucleotides
	HMMProfile
)

func (t SeqType) String() string {
	switch t {
	case AminoAcids:
		return "amino acids"
	case Nucleotides:
		return "nucleotides"
	case HMMProfile:
		return "HMM profile"
	}
	return "unknown"
}

// ParseSeqType parses a sequence type name.
func ParseSeqType(s string) (SeqType, bool) {
	switch s {
	case "aa", "amino-acids":
		return AminoAcids, true
	case "nt", "nucleotides":
		return Nucleotides, true
	case "profile", "hmm-profile":
		return HMMProfile, true
	}
	return AminoAcids, false
}

// Statistics are per-query counters filled by the matcher.
type Statistics struct {
	KmersPerPos float64
	DBMatches   int
}

// Sequence is a reusable view of one database entry: the blob's residues
// translated to small integers. The buffer is allocated once for the
// maximum sequence length and never grows.
type Sequence struct {
	ID  uint32 // internal id within the store
	Key uint64 // database key

	Int []uint8 // residue codes, Int[:L]
	L   int

	Type      SeqType
	Truncated bool // blob exceeded the maximum length

	Stats Statistics

	// position-specific scores, HMMProfile only: Profile[pos][residue]
	Profile [][]int16

	mat    *matrix.SubstitutionMatrix
	buf    []uint8
	maxLen int
}

// New allocates a sequence view for blobs up to maxLen residues.
func New(maxLen int, t SeqType, m *matrix.SubstitutionMatrix) *Sequence {
	s := &Sequence{
		Type:   t,
		mat:    m,
		buf:    make([]uint8, maxLen),
		maxLen: maxLen,
	}
	if t == HMMProfile {
		s.Profile = make([][]int16, maxLen)
		for i := range s.Profile {
			s.Profile[i] = make([]int16, m.Size)
		}
	}
	return s
}

// MaxLen returns the buffer capacity in residues.
func (s *Sequence) MaxLen() int { return s.maxLen }

// Map parses a residue blob into the reusable buffer. The blob may carry
// a trailing NUL and/or newline, both are ignored. Residues outside the
// alphabet map to the unknown symbol. Blobs longer than the buffer are
// truncated and flagged. For HMMProfile sequences the blob is a profile
// record, see MapProfile.
func (s *Sequence) Map(id uint32, key uint64, data []byte) {
	if s.Type == HMMProfile {
		s.MapProfile(id, key, data)
		return
	}
	s.ID = id
	s.Key = key
	s.Stats = Statistics{}
	s.Truncated = false

	n := len(data)
	for n > 0 && (data[n-1] == 0 || data[n-1] == '\n') {
		n--
	}
	if n > s.maxLen {
		n = s.maxLen
		s.Truncated = true
	}
	for i := 0; i < n; i++ {
		s.buf[i] = s.mat.Aa2Num[data[i]]
	}
	s.Int = s.buf[:n]
	s.L = n
}

// KmerCount returns the number of k-mer start positions, 0 when the
// sequence is shorter than k.
func (s *Sequence) KmerCount(k int) int {
	if s.L < k {
		return 0
	}
	return s.L - k + 1
}

// HasUnknown reports whether the k residues starting at pos contain the
// unknown symbol.
func (s *Sequence) HasUnknown(pos, k int) bool {
	unknown := s.mat.Unknown
	for _, c := range s.Int[pos : pos+k] {
		if c == unknown {
			return true
		}
	}
	return false
}
