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

// hitHeap is a bounded min-heap: the root is the weakest candidate, so
// a better hit replaces it in O(log n). "Weaker" means lower z-score,
// ties broken by larger target id, matching the final output order.
type hitHeap []Hit

// less reports whether a is weaker than b.
func (h hitHeap) less(a, b Hit) bool {
	if a.ZScore != b.ZScore {
		return a.ZScore < b.ZScore
	}
	return a.TargetID > b.TargetID
}

func (h *hitHeap) push(v Hit) {
	*h = append(*h, v)
	i := len(*h) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !(*h).less((*h)[i], (*h)[parent]) {
			break
		}
		(*h)[i], (*h)[parent] = (*h)[parent], (*h)[i]
		i = parent
	}
}

// replaceMin swaps the weakest hit for v and restores heap order.
func (h *hitHeap) replaceMin(v Hit) {
	s := *h
	s[0] = v
	i := 0
	n := len(s)
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < n && s.less(s[l], s[smallest]) {
			smallest = l
		}
		if r < n && s.less(s[r], s[smallest]) {
			smallest = r
		}
		if smallest == i {
			break
		}
		s[i], s[smallest] = s[smallest], s[i]
		i = smallest
	}
}
