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

package cmd

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shenwei356/util/bytesize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/seqfilter/seqfilter/seqfilter/ffindex"
	"github.com/seqfilter/seqfilter/seqfilter/index"
	"github.com/seqfilter/seqfilter/seqfilter/matcher"
	"github.com/seqfilter/seqfilter/seqfilter/matrix"
	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

// queryChunkSize is the dynamic scheduling block of the query loop;
// it smooths skew from varying query lengths.
const queryChunkSize = 100

// bitFactor scales substitution scores; k-mer thresholds assume it.
const bitFactor = 8.0

// calibMaxTargets and calibMaxQueries cap the calibration sample.
const (
	calibMaxTargets = 100000
	calibMaxQueries = 1000
)

// PrefilteringOptions configure a prefiltering run.
type PrefilteringOptions struct {
	QueryDB  string
	TargetDB string
	OutDB    string

	ScoringMatrixFile string // empty for the compiled-in BLOSUM62

	Sensitivity   float64
	KmerSize      int
	MaxResListLen int
	AlphabetSize  int
	ZscoreThr     float64
	MaxSeqLen     int

	QuerySeqType  sequence.SeqType
	TargetSeqType sequence.SeqType

	AABiasCorrection bool
	SplitSize        int // targets per split, 0 for a single split
	Skip             int // index position stride

	// manual threshold override: when KmerThreshold > 0 the
	// calibration is skipped and KmerMatchProb is used as given
	KmerThreshold int
	KmerMatchProb float64

	BufferSize int // per-query output blob cap in bytes

	// sharding across hosts: this process handles the ShardRank-th of
	// ShardCount balanced target ranges; rank 0 merges
	ShardRank  int
	ShardCount int

	NumCPUs int
	Verbose bool
}

// CheckPrefilteringOptions validates the configuration-fatal subset.
func CheckPrefilteringOptions(opt *PrefilteringOptions) error {
	if opt.KmerSize < 4 || opt.KmerSize > 7 {
		return fmt.Errorf("invalid k-mer size: %d, valid values: 4-7", opt.KmerSize)
	}
	if opt.AlphabetSize < 2 || opt.AlphabetSize > 21 {
		return fmt.Errorf("invalid alphabet size: %d, valid range: [2, 21]", opt.AlphabetSize)
	}
	if opt.MaxResListLen < 1 {
		return fmt.Errorf("invalid max result list length: %d", opt.MaxResListLen)
	}
	if opt.MaxSeqLen < opt.KmerSize {
		return fmt.Errorf("invalid max sequence length: %d", opt.MaxSeqLen)
	}
	if opt.TargetSeqType == sequence.HMMProfile {
		return fmt.Errorf("HMM profiles are only supported on the query side")
	}
	if opt.BufferSize < 1 {
		return fmt.Errorf("invalid buffer size: %d", opt.BufferSize)
	}
	if opt.KmerThreshold > 0 && opt.KmerMatchProb <= 0 {
		return fmt.Errorf("a manual k-mer threshold needs a k-mer match probability")
	}
	if opt.ShardCount > 1 && (opt.ShardRank < 0 || opt.ShardRank >= opt.ShardCount) {
		return fmt.Errorf("invalid shard rank %d of %d", opt.ShardRank, opt.ShardCount)
	}
	return nil
}

// Prefiltering drives a two-phase run: calibrate the k-mer similarity
// threshold once, then stream all queries against every target split.
type Prefiltering struct {
	opt *PrefilteringOptions

	qdbr   *ffindex.Reader
	tdbr   *ffindex.Reader
	sameDB bool

	subMat              *matrix.SubstitutionMatrix
	twoMat              *matrix.ExtendedSubstitutionMatrix
	threeMat            *matrix.ExtendedSubstitutionMatrix
	kmerThr             int16
	kmerMatchProb       float64
	achievedSensitivity float64

	notEmpty []byte // one flag per query, disjointly written by workers

	// per-split statistics, reduced from the workers
	kmersPerPos float64
	dbMatches   int
	resSize     int
	reslens     []int
}

// NewPrefiltering opens the stores, prepares the substitution matrices
// and calibrates the k-mer similarity threshold.
func NewPrefiltering(opt *PrefilteringOptions) (*Prefiltering, error) {
	if err := CheckPrefilteringOptions(opt); err != nil {
		return nil, err
	}

	p := &Prefiltering{opt: opt}

	var err error
	p.qdbr, err = ffindex.Open(opt.QueryDB, ffindex.NoSort)
	if err != nil {
		return nil, err
	}
	// SORT mode keeps SeqLens() descending, the reduction needs that
	p.tdbr, err = ffindex.Open(opt.TargetDB, ffindex.Sort)
	if err != nil {
		return nil, err
	}
	p.sameDB = filepath.Clean(opt.QueryDB) == filepath.Clean(opt.TargetDB)

	if err = ffindex.ErrorIfExists(opt.OutDB); err != nil {
		return nil, err
	}
	if p.tdbr.Size() == 0 {
		return nil, fmt.Errorf("empty target database: %s", opt.TargetDB)
	}
	if p.qdbr.Size() == 0 {
		return nil, fmt.Errorf("empty query database: %s", opt.QueryDB)
	}

	if opt.Verbose {
		log.Infof("query database: %s (size=%d)", opt.QueryDB, p.qdbr.Size())
		log.Infof("target database: %s (size=%d)", opt.TargetDB, p.tdbr.Size())
	}

	switch opt.QuerySeqType {
	case sequence.Nucleotides:
		p.subMat = matrix.NewNucleotideMatrix(bitFactor)
	default:
		p.subMat, err = loadSubstitutionMatrix(opt.ScoringMatrixFile, opt.AlphabetSize)
		if err != nil {
			return nil, err
		}
	}
	if opt.QuerySeqType != sequence.HMMProfile {
		if opt.Verbose {
			log.Infof("building extended substitution matrices, |A| = %d", p.subMat.Size)
		}
		p.twoMat = matrix.NewExtendedSubstitutionMatrix(p.subMat, 2)
		p.threeMat = matrix.NewExtendedSubstitutionMatrix(p.subMat, 3)
	}

	p.notEmpty = make([]byte, p.qdbr.Size())

	if opt.KmerThreshold > 0 {
		p.kmerThr = int16(opt.KmerThreshold)
		p.kmerMatchProb = opt.KmerMatchProb
		p.achievedSensitivity = opt.Sensitivity
	} else {
		if opt.Verbose {
			log.Infof("adjusting k-mer similarity threshold within +-10%% deviation, sensitivity = %.2f", opt.Sensitivity)
		}
		p.kmerThr, p.kmerMatchProb, p.achievedSensitivity, err = p.setKmerThreshold(opt.Sensitivity, 0.1)
		if err != nil {
			return nil, err
		}
	}
	if opt.Verbose {
		log.Infof("k-mer similarity threshold: %d", p.kmerThr)
		log.Infof("k-mer match probability: %g", p.kmerMatchProb)
	}

	return p, nil
}

// loadSubstitutionMatrix loads the scoring matrix file or falls back to
// the compiled-in BLOSUM62, reducing the alphabet when requested.
func loadSubstitutionMatrix(file string, alphabetSize int) (*matrix.SubstitutionMatrix, error) {
	var m *matrix.SubstitutionMatrix
	var err error
	if file == "" {
		m = matrix.NewAminoAcidMatrix(bitFactor)
	} else {
		m, err = matrix.Load(file, bitFactor)
		if err != nil {
			return nil, err
		}
	}
	if alphabetSize < m.Size {
		m = matrix.Reduce(m, alphabetSize-1)
	}
	return m, nil
}

// Run executes the whole prefiltering: all target splits, the final
// merge and the run info file.
func (p *Prefiltering) Run() error {
	defer p.closeReaders()

	if p.opt.ShardCount > 1 {
		targetFrom, targetTo := decomposeDomain(p.tdbr.Size(), p.opt.ShardRank, p.opt.ShardCount)
		base := tmpFileName(p.opt.OutDB, p.opt.ShardRank)
		if err := p.runSplit(targetFrom, targetTo, base); err != nil {
			return err
		}
		p.printStatistics()
		if p.opt.ShardRank != 0 {
			return nil
		}
		// rank 0 merges the shards of all ranks
		bases := make([]string, p.opt.ShardCount)
		for rank := 0; rank < p.opt.ShardCount; rank++ {
			bases[rank] = tmpFileName(p.opt.OutDB, rank)
		}
		if err := p.mergeOutput(bases); err != nil {
			return err
		}
		for _, base := range bases {
			ffindex.Remove(base)
		}
		return p.writeInfoFile(p.opt.ShardCount)
	}

	splitSize := p.opt.SplitSize
	if splitSize <= 0 {
		splitSize = p.tdbr.Size()
	}
	stepCount := (p.tdbr.Size() + splitSize - 1) / splitSize

	var bases []string
	step := 0
	for from := 0; from < p.tdbr.Size(); from += splitSize {
		to := from + splitSize
		if to > p.tdbr.Size() {
			to = p.tdbr.Size()
		}
		step++
		if p.opt.Verbose {
			log.Infof("prefiltering scores calculation (step %d of %d)", step, stepCount)
		}
		base := tmpFileName(p.opt.OutDB, step)
		bases = append(bases, base)
		if err := p.runSplit(from, to, base); err != nil {
			return err
		}
		p.printStatistics()
	}

	if err := p.mergeOutput(bases); err != nil {
		return err
	}
	for _, base := range bases {
		ffindex.Remove(base)
	}
	return p.writeInfoFile(len(bases))
}

func tmpFileName(base string, n int) string {
	return fmt.Sprintf("%s_tmp_%d", base, n)
}

// decomposeDomain splits size into worldSize contiguous ranges, the
// remainder distributed to the lowest ranks.
func decomposeDomain(size, rank, worldSize int) (from, to int) {
	chunk := size / worldSize
	rest := size % worldSize
	from = rank*chunk + min(rank, rest)
	to = from + chunk
	if rank < rest {
		to++
	}
	return from, to
}

// workerScratch bundles everything one worker mutates during a query:
// allocated once per worker, never on the hot path.
type workerScratch struct {
	thread  int // writer shard of this worker
	qseq    *sequence.Sequence
	matcher *matcher.QueryTemplateMatcher
	out     bytes.Buffer

	kmersPerPos float64
	dbMatches   int
	resSize     int
	reslens     []int
}

// newMatcher builds one thread-local matcher against the given table.
func (p *Prefiltering) newMatcher(table *index.Table, kmerThr int16, matchProb, zscoreThr float64) *matcher.QueryTemplateMatcher {
	opt := matcher.Options{
		KmerThr:          kmerThr,
		KmerMatchProb:    matchProb,
		KmerSize:         p.opt.KmerSize,
		DBSize:           p.tdbr.Size(),
		MaxSeqLen:        p.opt.MaxSeqLen,
		MaxResListLen:    p.opt.MaxResListLen,
		ZscoreThr:        zscoreThr,
		AABiasCorrection: p.opt.AABiasCorrection,
	}
	if p.opt.QuerySeqType == sequence.HMMProfile {
		return matcher.NewProfile(opt, p.subMat, table, p.tdbr.SeqLens())
	}
	return matcher.New(opt, p.subMat, p.twoMat, p.threeMat, table, p.tdbr.SeqLens())
}

// buildIndexTable scans the target range twice: counting, then filling.
func (p *Prefiltering) buildIndexTable(from, to int) (*index.Table, error) {
	timeStart := time.Now()
	table := index.New(p.subMat.Size, p.opt.KmerSize, p.opt.Skip)
	tseq := sequence.New(p.opt.MaxSeqLen, p.opt.TargetSeqType, p.subMat)

	if p.opt.Verbose {
		log.Infof("index table: counting k-mers of targets [%d, %d)", from, to)
	}
	for id := from; id < to; id++ {
		tseq.Map(uint32(id), p.tdbr.DbKey(uint32(id)), p.tdbr.Data(uint32(id)))
		table.AddKmerCount(tseq)
	}

	table.Init()

	if p.opt.Verbose {
		log.Infof("index table: filling %d entries (%s)",
			table.EntryCount(), bytesize.ByteSize(table.EntryCount()*4))
	}
	for id := from; id < to; id++ {
		tseq.Map(uint32(id), p.tdbr.DbKey(uint32(id)), p.tdbr.Data(uint32(id)))
		table.AddSequence(tseq)
	}

	table.RemoveDuplicateEntries()
	if p.opt.Verbose {
		log.Infof("index table: done in %s, %d entries after duplicate removal",
			time.Since(timeStart), table.EntryCount())
	}
	return table, nil
}

// runSplit prefilters every query against the target range [from, to),
// writing per-query result blobs into the store at base.
func (p *Prefiltering) runSplit(from, to int, base string) error {
	table, err := p.buildIndexTable(from, to)
	if err != nil {
		return err
	}

	writer := ffindex.NewWriter(base, p.opt.NumCPUs)
	if err = writer.Open(); err != nil {
		return err
	}

	for i := range p.notEmpty {
		p.notEmpty[i] = 0
	}

	nQueries := p.qdbr.Size()
	workers := make([]*workerScratch, p.opt.NumCPUs)
	for i := range workers {
		workers[i] = &workerScratch{
			thread:  i,
			qseq:    sequence.New(p.opt.MaxSeqLen, p.opt.QuerySeqType, p.subMat),
			matcher: p.newMatcher(table, p.kmerThr, p.kmerMatchProb, p.opt.ZscoreThr),
		}
		workers[i].out.Grow(p.opt.BufferSize)
	}

	var bar *mpb.Bar
	var pbs *mpb.Progress
	if p.opt.Verbose {
		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		bar = pbs.AddBar(int64(nQueries),
			mpb.PrependDecorators(
				decor.Name("processed queries: "),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: "),
				decor.EwmaETA(decor.ET_STYLE_GO, 10),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
	}

	timeStart := time.Now()
	var cursor int64
	var wg sync.WaitGroup
	var errOnce sync.Once
	var runErr error
	var stop atomic.Bool
	fail := func(err error) {
		errOnce.Do(func() { runErr = err })
		stop.Store(true)
	}

	for _, w := range workers {
		wg.Add(1)
		go func(w *workerScratch) {
			defer wg.Done()
			for !stop.Load() {
				start := atomic.AddInt64(&cursor, queryChunkSize) - queryChunkSize
				if start >= int64(nQueries) {
					return
				}
				end := start + queryChunkSize
				if end > int64(nQueries) {
					end = int64(nQueries)
				}
				chunkStart := time.Now()
				for id := uint32(start); id < uint32(end); id++ {
					if err := p.matchOne(w, writer, id); err != nil {
						fail(err)
						return
					}
				}
				if bar != nil {
					bar.EwmaIncrBy(int(end-start), time.Since(chunkStart))
				}
			}
		}(w)
	}
	wg.Wait()
	if pbs != nil {
		pbs.Wait()
	}
	if runErr != nil {
		return runErr
	}

	// reduce worker statistics
	p.kmersPerPos, p.dbMatches, p.resSize = 0, 0, 0
	p.reslens = p.reslens[:0]
	for _, w := range workers {
		p.kmersPerPos += w.kmersPerPos
		p.dbMatches += w.dbMatches
		p.resSize += w.resSize
		p.reslens = append(p.reslens, w.reslens...)
		w.reslens = w.reslens[:0]
	}

	if p.opt.Verbose {
		log.Infof("time for prefiltering scores calculation: %s", time.Since(timeStart))
	}
	return writer.Close()
}

// matchOne prefilters one query id and writes its result blob.
func (p *Prefiltering) matchOne(w *workerScratch, writer *ffindex.Writer, id uint32) error {
	key := p.qdbr.DbKey(id)
	w.qseq.Map(id, key, p.qdbr.Data(id))
	if w.qseq.Truncated {
		log.Warningf("query %d longer than %d residues, truncated", key, p.opt.MaxSeqLen)
	}

	// a target carrying the query's key is the query itself
	selfID := uint32(matcher.NoSelf)
	if tid, ok := p.tdbr.ID(key); ok {
		selfID = tid
	}

	hits := w.matcher.MatchQuery(w.qseq, selfID)

	n, err := p.writePrefilterOutput(w, writer, w.thread, id, hits)
	if err != nil {
		return err
	}
	if n < 0 {
		return nil // blob over the buffer cap, query skipped
	}

	if n != 0 {
		p.notEmpty[id] = 1
	}
	w.kmersPerPos += w.qseq.Stats.KmersPerPos
	w.dbMatches += w.qseq.Stats.DBMatches
	w.resSize += n
	w.reslens = append(w.reslens, n)
	return nil
}

// writePrefilterOutput formats the hit list as one line per hit
// (targetKey, z-score, prefiltering score) and writes the blob under
// the query's key. Returns -1 without writing when the blob exceeds
// the output buffer cap.
func (p *Prefiltering) writePrefilterOutput(w *workerScratch, writer *ffindex.Writer,
	thread int, id uint32, hits []matcher.Hit) (int, error) {
	w.out.Reset()
	n := 0
	for _, h := range hits {
		if int(h.TargetID) >= p.tdbr.Size() {
			log.Warningf("wrong prefiltering result: query %d -> %d\t%d",
				p.qdbr.DbKey(id), h.TargetID, h.PrefScore)
		}
		fmt.Fprintf(&w.out, "%d\t%.4f\t%d\n", p.tdbr.DbKey(h.TargetID), h.ZScore, h.PrefScore)
		n++
		if n == p.opt.MaxResListLen {
			break
		}
	}
	if w.out.Len() > p.opt.BufferSize {
		log.Warningf("output buffer size < prefiltering result size (%d < %d) for query %d, skipping",
			p.opt.BufferSize, w.out.Len(), p.qdbr.DbKey(id))
		return -1, nil
	}
	return n, writer.Write(w.out.Bytes(), p.qdbr.DbKey(id), thread)
}

// printStatistics logs the aggregate statistics of the last split.
func (p *Prefiltering) printStatistics() {
	if !p.opt.Verbose {
		return
	}
	n := p.qdbr.Size()
	if n == 0 {
		return
	}
	empty := 0
	for _, f := range p.notEmpty {
		if f == 0 {
			empty++
		}
	}
	sort.Ints(p.reslens)
	var median int
	if len(p.reslens) > 0 {
		median = p.reslens[len(p.reslens)/2]
	}
	log.Infof("%.6f k-mers per position", p.kmersPerPos/float64(n))
	log.Infof("%d DB matches per sequence", p.dbMatches/n)
	passed := p.resSize / n
	if passed > p.opt.MaxResListLen {
		log.Infof("%d sequences passed prefiltering per query sequence (ATTENTION: max. %d best scoring sequences were written)",
			passed, p.opt.MaxResListLen)
	} else {
		log.Infof("%d sequences passed prefiltering per query sequence", passed)
	}
	log.Infof("median result list size: %d", median)
	log.Infof("%d sequences with 0 size result lists", empty)
}

// mergedHit is one parsed line during the split merge.
type mergedHit struct {
	key      uint64
	targetID uint32
	zScore   float64
	score    int
}

// mergeOutput combines the per-split stores: per query, the union of
// the split hit lists re-sorted by descending z-score and truncated to
// the result list cap.
func (p *Prefiltering) mergeOutput(bases []string) error {
	writer := ffindex.NewWriter(p.opt.OutDB, 1)
	if err := writer.Open(); err != nil {
		return err
	}

	readers := make([]*ffindex.Reader, len(bases))
	for i, base := range bases {
		r, err := ffindex.Open(base, ffindex.NoSort)
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

	var hits []mergedHit
	var out bytes.Buffer
	for id := uint32(0); id < uint32(p.qdbr.Size()); id++ {
		key := p.qdbr.DbKey(id)
		hits = hits[:0]
		for _, r := range readers {
			rid, ok := r.ID(key)
			if !ok {
				continue
			}
			var err error
			hits, err = parseHits(hits, r.Data(rid), p.tdbr)
			if err != nil {
				return err
			}
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].zScore != hits[j].zScore {
				return hits[i].zScore > hits[j].zScore
			}
			return hits[i].targetID < hits[j].targetID
		})
		if len(hits) > p.opt.MaxResListLen {
			hits = hits[:p.opt.MaxResListLen]
		}
		out.Reset()
		for _, h := range hits {
			fmt.Fprintf(&out, "%d\t%.4f\t%d\n", h.key, h.zScore, h.score)
		}
		if err := writer.Write(out.Bytes(), key, 0); err != nil {
			return err
		}
	}
	return writer.Close()
}

// parseHits appends the hit lines of one result blob.
func parseHits(hits []mergedHit, blob []byte, tdbr *ffindex.Reader) ([]mergedHit, error) {
	for len(blob) > 0 {
		nl := bytes.IndexByte(blob, '\n')
		var line []byte
		if nl < 0 {
			line, blob = blob, nil
		} else {
			line, blob = blob[:nl], blob[nl+1:]
		}
		if len(line) == 0 {
			continue
		}
		fields := bytes.Split(line, []byte{'\t'})
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid prefiltering result line: %s", line)
		}
		key, err := strconv.ParseUint(string(fields[0]), 10, 64)
		if err != nil {
			return nil, err
		}
		z, err := strconv.ParseFloat(string(fields[1]), 64)
		if err != nil {
			return nil, err
		}
		score, err := strconv.Atoi(string(fields[2]))
		if err != nil {
			return nil, err
		}
		h := mergedHit{key: key, zScore: z, score: score}
		if tid, ok := tdbr.ID(key); ok {
			h.targetID = tid
		} else {
			h.targetID = math.MaxUint32
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// runInfo is persisted next to the output store after a full run.
type runInfo struct {
	Version             string  `toml:"version"`
	KmerSize            int     `toml:"kmer-size"`
	AlphabetSize        int     `toml:"alphabet-size"`
	Sensitivity         float64 `toml:"sensitivity"`
	AchievedSensitivity float64 `toml:"achieved-sensitivity"`
	KmerThreshold       int     `toml:"kmer-threshold"`
	KmerMatchProb       float64 `toml:"kmer-match-prob"`
	Queries             int     `toml:"queries"`
	Targets             int     `toml:"targets"`
	Splits              int     `toml:"splits"`
}

func (p *Prefiltering) writeInfoFile(splits int) error {
	info := runInfo{
		Version:             VERSION,
		KmerSize:            p.opt.KmerSize,
		AlphabetSize:        p.subMat.Size,
		Sensitivity:         p.opt.Sensitivity,
		AchievedSensitivity: p.achievedSensitivity,
		KmerThreshold:       int(p.kmerThr),
		KmerMatchProb:       p.kmerMatchProb,
		Queries:             p.qdbr.Size(),
		Targets:             p.tdbr.Size(),
		Splits:              splits,
	}
	data, err := toml.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(p.opt.OutDB+".info.toml", data, 0644)
}

func (p *Prefiltering) closeReaders() {
	p.qdbr.Close()
	if !p.sameDB {
		p.tdbr.Close()
	}
}
