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

package ffindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Writer appends blobs to per-thread shard files; Close concatenates
// the shards into the final store and sorts the index by key. Write
// calls from different threads never touch the same shard, so no
// locking is needed.
type Writer struct {
	Base      string
	IndexFile string

	threads   int
	dataFhs   []*os.File
	dataBufs  []*bufio.Writer
	offsets   []int64
	entries   [][]indexEntry
	shardData []string
}

type indexEntry struct {
	key    uint64
	offset int64
	length int64
}

// ErrorIfExists fails when the store's data or index file is present.
func ErrorIfExists(base string) error {
	for _, f := range []string{base, base + IndexFileExt} {
		if _, err := os.Stat(f); err == nil {
			return fmt.Errorf("output file exists: %s", f)
		}
	}
	return nil
}

// NewWriter creates a writer with one shard per thread.
func NewWriter(base string, threads int) *Writer {
	if threads < 1 {
		threads = 1
	}
	return &Writer{
		Base:      base,
		IndexFile: base + IndexFileExt,
		threads:   threads,
	}
}

// Open creates the shard files.
func (w *Writer) Open() error {
	w.dataFhs = make([]*os.File, w.threads)
	w.dataBufs = make([]*bufio.Writer, w.threads)
	w.offsets = make([]int64, w.threads)
	w.entries = make([][]indexEntry, w.threads)
	w.shardData = make([]string, w.threads)
	for i := 0; i < w.threads; i++ {
		w.shardData[i] = fmt.Sprintf("%s.%d", w.Base, i)
		fh, err := os.Create(w.shardData[i])
		if err != nil {
			return errors.Wrapf(err, "create store shard: %s", w.shardData[i])
		}
		w.dataFhs[i] = fh
		w.dataBufs[i] = bufio.NewWriterSize(fh, 1<<20)
	}
	return nil
}

// Write appends one blob under key to the given thread's shard. A NUL
// byte terminates the blob on disk, matching the read side.
func (w *Writer) Write(data []byte, key uint64, thread int) error {
	buf := w.dataBufs[thread]
	if _, err := buf.Write(data); err != nil {
		return errors.Wrapf(err, "write store shard: %s", w.shardData[thread])
	}
	if err := buf.WriteByte(0); err != nil {
		return errors.Wrapf(err, "write store shard: %s", w.shardData[thread])
	}
	length := int64(len(data)) + 1
	w.entries[thread] = append(w.entries[thread], indexEntry{key, w.offsets[thread], length})
	w.offsets[thread] += length
	return nil
}

// Close concatenates the shards into the final data file, writes the
// index sorted by key and removes the shards.
func (w *Writer) Close() error {
	out, err := os.Create(w.Base)
	if err != nil {
		return errors.Wrapf(err, "create store data: %s", w.Base)
	}
	outBuf := bufio.NewWriterSize(out, 1<<20)

	var all []indexEntry
	var offset int64
	for i := 0; i < w.threads; i++ {
		if err = w.dataBufs[i].Flush(); err != nil {
			return errors.Wrapf(err, "flush store shard: %s", w.shardData[i])
		}
		if _, err = w.dataFhs[i].Seek(0, io.SeekStart); err != nil {
			return errors.Wrapf(err, "rewind store shard: %s", w.shardData[i])
		}
		if _, err = io.Copy(outBuf, w.dataFhs[i]); err != nil {
			return errors.Wrapf(err, "concatenate store shard: %s", w.shardData[i])
		}
		for _, e := range w.entries[i] {
			all = append(all, indexEntry{e.key, e.offset + offset, e.length})
		}
		offset += w.offsets[i]
		w.dataFhs[i].Close()
		os.Remove(w.shardData[i])
	}
	if err = outBuf.Flush(); err != nil {
		return errors.Wrapf(err, "write store data: %s", w.Base)
	}
	if err = out.Close(); err != nil {
		return errors.Wrapf(err, "close store data: %s", w.Base)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].key < all[j].key })

	idx, err := os.Create(w.IndexFile)
	if err != nil {
		return errors.Wrapf(err, "create store index: %s", w.IndexFile)
	}
	idxBuf := bufio.NewWriterSize(idx, 1<<20)
	for _, e := range all {
		fmt.Fprintf(idxBuf, "%d\t%d\t%d\n", e.key, e.offset, e.length)
	}
	if err = idxBuf.Flush(); err != nil {
		return errors.Wrapf(err, "write store index: %s", w.IndexFile)
	}
	return idx.Close()
}

// Remove deletes a store's data and index files.
func Remove(base string) {
	os.Remove(base)
	os.Remove(base + IndexFileExt)
}

// MergeFiles merges the given stores into w: for every entry of the
// query store, in key order, the per-store blobs under that key are
// concatenated into one blob. Stores missing a key contribute nothing.
// The writer must be open and is closed by the caller.
func (w *Writer) MergeFiles(query *Reader, bases []string, bufSize int) error {
	readers := make([]*Reader, len(bases))
	for i, base := range bases {
		r, err := Open(base, NoSort)
		if err != nil {
			return err
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	merged := make([]byte, 0, bufSize)
	for id := uint32(0); id < uint32(query.Size()); id++ {
		key := query.DbKey(id)
		merged = merged[:0]
		for _, r := range readers {
			rid, ok := r.ID(key)
			if !ok {
				continue
			}
			merged = append(merged, r.Data(rid)...)
		}
		if err := w.Write(merged, key, 0); err != nil {
			return err
		}
	}
	return nil
}
