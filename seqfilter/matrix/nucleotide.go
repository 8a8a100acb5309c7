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

// NucleotideAlphabet is ACGT plus N as the unknown symbol.
const NucleotideAlphabet = "ACGTN"

// NewNucleotideMatrix returns a simple match/mismatch matrix over ACGTN,
// scaled by bitFactor like the amino-acid matrices. U is accepted as T.
func NewNucleotideMatrix(bitFactor float64) *SubstitutionMatrix {
	m := newMatrix(NucleotideAlphabet, bitFactor)
	m.Aa2Num['U'] = m.Aa2Num['T']
	m.Aa2Num['u'] = m.Aa2Num['T']

	raw := make([][]int, m.Size)
	for i := range raw {
		raw[i] = make([]int, m.Size)
		for j := range raw[i] {
			switch {
			case uint8(i) == m.Unknown || uint8(j) == m.Unknown:
				raw[i][j] = -1
			case i == j:
				raw[i][j] = 4
			default:
				raw[i][j] = -4
			}
		}
	}
	for i := 0; i < 4; i++ {
		m.Background[i] = 0.25
	}
	m.Background[m.Unknown] = 0.0001
	m.fillFromRaw(raw)
	return m
}
