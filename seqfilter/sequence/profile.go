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
	"encoding/binary"
)

var le = binary.LittleEndian

// Magic number of serialized profile blobs.
var ProfileMagic = [4]byte{'P', 'R', 'F', '1'}

// Profile blob layout, little endian:
//
//	[4]byte  magic "PRF1"
//	uint32   number of columns L
//	L x |A|  int16 position-specific scores
//	L  byte  consensus residue letters
//
// The consensus residues feed k-mer extraction; the score rows replace
// substitution matrix lookups during matching.

// MapProfile parses a profile blob into the reusable buffers. Malformed
// blobs yield L = 0. Profiles longer than the buffer are truncated and
// flagged.
func (s *Sequence) MapProfile(id uint32, key uint64, data []byte) {
	s.ID = id
	s.Key = key
	s.Stats = Statistics{}
	s.Truncated = false
	s.L = 0
	s.Int = s.buf[:0]

	if len(data) < 8 || [4]byte(data[:4]) != ProfileMagic {
		return
	}
	n := int(le.Uint32(data[4:8]))
	rowBytes := 2 * s.mat.Size
	if len(data) < 8+n*rowBytes+n {
		return
	}
	if n > s.maxLen {
		n = s.maxLen
		s.Truncated = true
	}

	scores := data[8:]
	for i := 0; i < n; i++ {
		row := s.Profile[i]
		off := i * rowBytes
		for a := 0; a < s.mat.Size; a++ {
			row[a] = int16(le.Uint16(scores[off+2*a:]))
		}
	}
	letters := data[8+int(le.Uint32(data[4:8]))*rowBytes:]
	for i := 0; i < n; i++ {
		s.buf[i] = s.mat.Aa2Num[letters[i]]
	}
	s.Int = s.buf[:n]
	s.L = n
}

// WriteProfileBlob serializes a profile for storage, the inverse of
// MapProfile. Rows must all have alphabet-size columns; letters is the
// consensus sequence of the same length.
func WriteProfileBlob(rows [][]int16, letters []byte) []byte {
	if len(rows) != len(letters) {
		panic("profile rows and consensus length differ")
	}
	var rowSize int
	if len(rows) > 0 {
		rowSize = len(rows[0])
	}
	out := make([]byte, 0, 8+len(rows)*rowSize*2+len(letters))
	out = append(out, ProfileMagic[:]...)
	out = le.AppendUint32(out, uint32(len(rows)))
	for _, row := range rows {
		for _, v := range row {
			out = le.AppendUint16(out, uint16(v))
		}
	}
	out = append(out, letters...)
	return out
}
