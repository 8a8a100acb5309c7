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

import "github.com/seqfilter/seqfilter/seqfilter/sequence"

// computeBias fills the per-position threshold correction: the mean
// substitution score of the residue at i against its neighbors in a
// centered window. Low-complexity stretches score their own context
// highly, raising the local threshold and damping inflated diagonals.
// Negative means (the unbiased case) are clamped to zero.
func (q *QueryTemplateMatcher) computeBias(s *sequence.Sequence) {
	half := biasWindow / 2
	scores := q.mat.Scores
	for i := 0; i < s.L; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > s.L {
			hi = s.L
		}
		row := scores[s.Int[i]]
		var sum int
		for j := lo; j < hi; j++ {
			if j == i {
				continue
			}
			sum += int(row[s.Int[j]])
		}
		n := hi - lo - 1 // window size excluding i
		if n < 1 {
			n = 1
		}
		mean := sum / n
		if mean < 0 {
			mean = 0
		}
		q.bias[i] = int16(mean)
	}
}
