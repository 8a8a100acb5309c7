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

// Package ffindex implements the append-only key to blob store used for
// sequence databases and prefiltering results: a flat data file plus a
// tab-separated index file mapping numeric keys to (offset, length).
package ffindex

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// IndexFileExt is appended to the store base path for the index file.
const IndexFileExt = ".index"

// Mode selects the internal id order of an open Reader.
type Mode int

const (
	// NoSort keeps entries in index file order.
	NoSort Mode = iota
	// Sort orders entries by decreasing sequence length, so SeqLens()
	// is sorted descending.
	Sort
	// LinearAccess orders entries by data file offset.
	LinearAccess
)

// Reader provides random access to a store. The data file is loaded
// into memory once; all accessors are safe for concurrent use.
type Reader struct {
	Base      string
	IndexFile string

	data    []byte
	keys    []uint64
	offsets []int64
	lengths []int64 // blob length as stored, including the trailing NUL
	seqLens []uint32
	key2id  map[uint64]uint32

	closed bool
}

// Open loads the store at base (data file base, index file
// base+".index") with the given id order.
func Open(base string, mode Mode) (*Reader, error) {
	r := &Reader{Base: base, IndexFile: base + IndexFileExt}

	var err error
	r.data, err = os.ReadFile(base)
	if err != nil {
		return nil, errors.Wrapf(err, "open store data: %s", base)
	}

	fh, err := os.Open(r.IndexFile)
	if err != nil {
		return nil, errors.Wrapf(err, "open store index: %s", r.IndexFile)
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid index line in %s: %s", r.IndexFile, line)
		}
		key, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid key in %s", r.IndexFile)
		}
		offset, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid offset in %s", r.IndexFile)
		}
		length, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid length in %s", r.IndexFile)
		}
		if offset+length > int64(len(r.data)) {
			return nil, fmt.Errorf("index entry past end of data file %s: key %d", base, key)
		}
		r.keys = append(r.keys, key)
		r.offsets = append(r.offsets, offset)
		r.lengths = append(r.lengths, length)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read store index: %s", r.IndexFile)
	}

	r.seqLens = make([]uint32, len(r.keys))
	for i := range r.keys {
		r.seqLens[i] = blobSeqLen(r.blobAt(i))
	}

	switch mode {
	case Sort:
		r.reorder(func(i, j int) bool {
			if r.seqLens[i] != r.seqLens[j] {
				return r.seqLens[i] > r.seqLens[j]
			}
			return r.keys[i] < r.keys[j]
		})
	case LinearAccess:
		r.reorder(func(i, j int) bool { return r.offsets[i] < r.offsets[j] })
	}

	r.key2id = make(map[uint64]uint32, len(r.keys))
	for i, k := range r.keys {
		r.key2id[k] = uint32(i)
	}
	return r, nil
}

// reorder permutes all id-indexed slices with the given order.
func (r *Reader) reorder(less func(i, j int) bool) {
	ids := make([]int, len(r.keys))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(a, b int) bool { return less(ids[a], ids[b]) })

	keys := make([]uint64, len(ids))
	offsets := make([]int64, len(ids))
	lengths := make([]int64, len(ids))
	seqLens := make([]uint32, len(ids))
	for to, from := range ids {
		keys[to] = r.keys[from]
		offsets[to] = r.offsets[from]
		lengths[to] = r.lengths[from]
		seqLens[to] = r.seqLens[from]
	}
	r.keys, r.offsets, r.lengths, r.seqLens = keys, offsets, lengths, seqLens
}

func (r *Reader) blobAt(id int) []byte {
	return r.data[r.offsets[id] : r.offsets[id]+r.lengths[id]]
}

// blobSeqLen is the blob length without trailing NUL and newline bytes.
func blobSeqLen(b []byte) uint32 {
	n := len(b)
	for n > 0 && (b[n-1] == 0 || b[n-1] == '\n') {
		n--
	}
	return uint32(n)
}

// Size returns the number of entries.
func (r *Reader) Size() int { return len(r.keys) }

// Data returns the blob of an internal id, without the trailing NUL.
func (r *Reader) Data(id uint32) []byte {
	b := r.blobAt(int(id))
	if n := len(b); n > 0 && b[n-1] == 0 {
		return b[:n-1]
	}
	return b
}

// DbKey returns the database key of an internal id.
func (r *Reader) DbKey(id uint32) uint64 { return r.keys[id] }

// SeqLens returns the residue lengths indexed by internal id; sorted
// descending when the store was opened in Sort mode.
func (r *Reader) SeqLens() []uint32 { return r.seqLens }

// ID resolves a database key to its internal id.
func (r *Reader) ID(key uint64) (uint32, bool) {
	id, ok := r.key2id[key]
	return id, ok
}

// Close releases the in-memory data.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.data = nil
	return nil
}
