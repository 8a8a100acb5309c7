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

// Package matrix provides residue alphabets and substitution matrices
// for amino-acid and nucleotide sequences, including reduced alphabets
// and extended (k-mer) score tables.
package matrix

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// SubstitutionMatrix maps residues to small integers and scores residue
// pairs. The last letter of the alphabet is always the unknown symbol;
// k-mers containing it are excluded from indexing and matching.
type SubstitutionMatrix struct {
	Alphabet   []byte      // residue letter per integer code
	Aa2Num     [256]uint8  // residue letter -> integer code, unknowns -> Unknown
	Size       int         // effective alphabet size |A|, unknown included
	Unknown    uint8       // code of the unknown symbol, always Size-1
	Scores     [][]int16   // Size x Size, symmetric, scaled by BitFactor/2
	Background []float64   // background probability p(a)
	Joint      [][]float64 // joint probability p(a,b)

	BitFactor float64
}

// newMatrix allocates a matrix for the given alphabet string, with the
// unknown symbol as its last letter.
func newMatrix(alphabet string, bitFactor float64) *SubstitutionMatrix {
	m := &SubstitutionMatrix{
		Alphabet:  []byte(alphabet),
		Size:      len(alphabet),
		Unknown:   uint8(len(alphabet) - 1),
		BitFactor: bitFactor,
	}
	for i := range m.Aa2Num {
		m.Aa2Num[i] = m.Unknown
	}
	for i, a := range m.Alphabet {
		m.Aa2Num[a] = uint8(i)
		m.Aa2Num[a|0x20] = uint8(i) // lower case
	}
	m.Scores = make([][]int16, m.Size)
	m.Joint = make([][]float64, m.Size)
	for i := 0; i < m.Size; i++ {
		m.Scores[i] = make([]int16, m.Size)
		m.Joint[i] = make([]float64, m.Size)
	}
	m.Background = make([]float64, m.Size)
	return m
}

// fillFromRaw derives scaled scores and joint probabilities from raw
// half-bit scores and the background distribution.
// p(a,b) = p(a) p(b) 2^(s/2) for a raw half-bit score s.
func (m *SubstitutionMatrix) fillFromRaw(raw [][]int) {
	f := m.BitFactor / 2.0
	for i := 0; i < m.Size; i++ {
		for j := 0; j < m.Size; j++ {
			m.Scores[i][j] = int16(math.Round(float64(raw[i][j]) * f))
			m.Joint[i][j] = m.Background[i] * m.Background[j] *
				math.Exp2(float64(raw[i][j])/2.0)
		}
	}
}

// Score returns the substitution score of two residue codes.
func (m *SubstitutionMatrix) Score(a, b uint8) int16 {
	return m.Scores[a][b]
}

// MaxScore returns the largest score in row a.
func (m *SubstitutionMatrix) MaxScore(a uint8) int16 {
	max := m.Scores[a][0]
	for _, s := range m.Scores[a][1:] {
		if s > max {
			max = s
		}
	}
	return max
}

// AminoAcidAlphabet is the canonical 20-letter alphabet plus X.
const AminoAcidAlphabet = "ACDEFGHIKLMNPQRSTVWYX"

// NewAminoAcidMatrix returns the compiled-in BLOSUM62 matrix with
// Robinson-Robinson background frequencies, scaled by bitFactor.
func NewAminoAcidMatrix(bitFactor float64) *SubstitutionMatrix {
	m := newMatrix(AminoAcidAlphabet, bitFactor)
	copy(m.Background, blosum62Background)
	m.fillFromRaw(blosum62)
	return m
}

// Load reads a substitution matrix in NCBI format (a header line of
// residue letters, then one score row per residue). Pairs of letters of
// the canonical alphabet that the file does not score keep their
// compiled-in BLOSUM62 values. Plain and gzip-compressed files are
// supported.
func Load(file string, bitFactor float64) (*SubstitutionMatrix, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read scoring matrix file: %s", file)
	}
	defer fh.Close()

	var header []byte
	raw := make(map[byte]map[byte]int)

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if header == nil {
			for _, f := range fields {
				if len(f) != 1 {
					return nil, fmt.Errorf("invalid matrix header field: %s", f)
				}
				header = append(header, f[0])
			}
			continue
		}
		if len(fields) != len(header)+1 || len(fields[0]) != 1 {
			return nil, fmt.Errorf("invalid matrix row: %s", line)
		}
		a := fields[0][0]
		row := make(map[byte]int, len(header))
		for i, f := range fields[1:] {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid score in row %c", a)
			}
			row[header[i]] = v
		}
		raw[a] = row
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read scoring matrix file: %s", file)
	}
	if header == nil {
		return nil, fmt.Errorf("empty scoring matrix file: %s", file)
	}

	m := newMatrix(AminoAcidAlphabet, bitFactor)
	copy(m.Background, blosum62Background)
	rawFull := make([][]int, m.Size)
	for i := range rawFull {
		rawFull[i] = make([]int, m.Size)
	}
	for i, a := range m.Alphabet {
		for j, b := range m.Alphabet {
			if row, ok := raw[a]; ok {
				if v, ok := row[b]; ok {
					rawFull[i][j] = v
					continue
				}
			}
			rawFull[i][j] = blosum62[i][j] // fall back for letters not in the file
		}
	}
	m.fillFromRaw(rawFull)
	return m, nil
}
