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

import "math"

// Reduce collapses the alphabet of m to targetSize letters (the unknown
// symbol not counted) by greedy clustering on the joint probabilities:
// the pair of groups with the highest pairing odds p(a,b)/(p(a)p(b)) is
// merged until targetSize groups remain. Each group is represented by
// its most frequent member; all members map to the representative's code.
// Scores and probabilities are recomputed for the merged groups.
func Reduce(m *SubstitutionMatrix, targetSize int) *SubstitutionMatrix {
	n := m.Size - 1 // letters subject to clustering, unknown excluded
	if targetSize >= n {
		return m
	}

	// group[g] lists the original codes merged into group g
	groups := make([][]uint8, n)
	for i := 0; i < n; i++ {
		groups[i] = []uint8{uint8(i)}
	}
	bg := append([]float64(nil), m.Background[:n]...)
	joint := make([][]float64, n)
	for i := 0; i < n; i++ {
		joint[i] = append([]float64(nil), m.Joint[i][:n]...)
	}

	for len(groups) > targetSize {
		bi, bj := 0, 1
		best := math.Inf(-1)
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				odds := joint[i][j] / (bg[i] * bg[j])
				if odds > best {
					best = odds
					bi, bj = i, j
				}
			}
		}

		// merge group bj into bi, then drop bj
		groups[bi] = append(groups[bi], groups[bj]...)
		bg[bi] += bg[bj]
		self := joint[bi][bi] + 2*joint[bi][bj] + joint[bj][bj]
		for k := 0; k < len(groups); k++ {
			if k == bi || k == bj {
				continue
			}
			joint[bi][k] += joint[bj][k]
			joint[k][bi] = joint[bi][k]
		}
		joint[bi][bi] = self

		last := len(groups) - 1
		groups[bj] = groups[last]
		bg[bj] = bg[last]
		joint[bj] = joint[last]
		for k := 0; k <= last; k++ {
			joint[k][bj] = joint[k][last]
		}
		groups = groups[:last]
		bg = bg[:last]
		joint = joint[:last]
	}

	r := &SubstitutionMatrix{
		Size:      targetSize + 1,
		Unknown:   uint8(targetSize),
		BitFactor: m.BitFactor,
	}
	r.Alphabet = make([]byte, r.Size)
	r.Background = make([]float64, r.Size)
	r.Scores = make([][]int16, r.Size)
	r.Joint = make([][]float64, r.Size)
	for i := range r.Scores {
		r.Scores[i] = make([]int16, r.Size)
		r.Joint[i] = make([]float64, r.Size)
	}

	// the representative of a group is its most frequent member
	for g, members := range groups {
		rep := members[0]
		for _, a := range members[1:] {
			if m.Background[a] > m.Background[rep] {
				rep = a
			}
		}
		r.Alphabet[g] = m.Alphabet[rep]
		r.Background[g] = bg[g]
	}
	r.Alphabet[r.Unknown] = m.Alphabet[m.Unknown]
	r.Background[r.Unknown] = m.Background[m.Unknown]

	f := r.BitFactor / 2.0
	for i := 0; i < targetSize; i++ {
		for j := 0; j < targetSize; j++ {
			r.Joint[i][j] = joint[i][j]
			s := math.Log2(joint[i][j]/(bg[i]*bg[j])) * 2.0
			r.Scores[i][j] = int16(math.Round(s * f))
		}
	}
	for i := 0; i < r.Size; i++ {
		r.Scores[i][r.Unknown] = int16(math.Round(-1 * r.BitFactor / 2.0))
		r.Scores[r.Unknown][i] = r.Scores[i][r.Unknown]
	}

	// translate every original letter through its group
	for i := range r.Aa2Num {
		r.Aa2Num[i] = r.Unknown
	}
	for g, members := range groups {
		for _, a := range members {
			letter := m.Alphabet[a]
			r.Aa2Num[letter] = uint8(g)
			r.Aa2Num[letter|0x20] = uint8(g)
		}
	}
	return r
}
