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
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/stat"

	"github.com/seqfilter/seqfilter/seqfilter/matcher"
	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

// calibChunkSize is the dynamic scheduling block of the sample loop.
const calibChunkSize = 10

// calibZscoreThr disables z-score filtering during calibration so the
// measured statistics reflect the raw k-mer workload.
const calibZscoreThr = 500.0

// lenSumPC is the pseudo-count mass stabilizing the match probability
// on small samples: 1000 queries x 350 residues x 100000 targets x 350
// residues.
const lenSumPC = 1.225e13

// costModel holds the fitted per-k constants of
// time ~ alpha*kmersPerPos + beta*kmerMatchProb + gamma.
type costModel struct {
	alpha, beta, gamma float64
}

var costModels = map[int]costModel{
	4: {6.974347e-01, 6.954641e+05, 1.194005},
	5: {2.133863e-01, 7.612418e+05, 1.959421},
	6: {1.141648e-01, 9.033168e+05, 1.411142},
	7: {7.123599e-02, 3.148479e+06, 1.304421},
}

// setKmerThreshold binary-searches the k-mer similarity threshold so
// that the predicted per-query cost lands within the tolerated band
// around 2^sensitivity. It returns the threshold, the calibrated k-mer
// match probability and the achieved sensitivity. When no threshold
// hits the band, the closest candidate is returned with a warning.
func (p *Prefiltering) setKmerThreshold(sensitivity, tolerance float64) (int16, float64, float64, error) {
	model, ok := costModels[p.opt.KmerSize]
	if !ok {
		return 0, 0, 0, fmt.Errorf("the k-mer size %d is not valid", p.opt.KmerSize)
	}

	targetDBSize := p.tdbr.Size()
	if targetDBSize > calibMaxTargets {
		targetDBSize = calibMaxTargets
	}
	table, err := p.buildIndexTable(0, targetDBSize)
	if err != nil {
		return 0, 0, 0, err
	}

	var targetSeqLenSum int64
	for _, l := range p.tdbr.SeqLens()[:targetDBSize] {
		targetSeqLenSum += int64(l)
	}

	// fixed-seed pseudo-random query sample for reproducible calibration
	querySetSize := p.qdbr.Size()
	if querySetSize > calibMaxQueries {
		querySetSize = calibMaxQueries
	}
	rng := rand.New(rand.NewSource(1))
	querySeqs := make([]uint32, querySetSize)
	for i := range querySeqs {
		querySeqs[i] = uint32(rng.Intn(p.qdbr.Size()))
	}

	lo := int16(3 * p.opt.KmerSize)
	hi := int16(80 * p.opt.KmerSize)

	base := 2.0
	timevalMax := math.Pow(base, sensitivity) * (1.0 + tolerance)
	timevalMin := math.Pow(base, sensitivity) * (1.0 - tolerance)

	// best out-of-band candidate, returned when the search exits empty
	var timevalBest, matchProbBest float64
	var thrBest int16

	workers := make([]*calibWorker, p.opt.NumCPUs)
	for i := range workers {
		workers[i] = &calibWorker{
			qseq: sequence.New(p.opt.MaxSeqLen, p.opt.QuerySeqType, p.subMat),
		}
	}

	for hi >= lo {
		mid := lo + (hi-lo)*3/4 // biased midpoint, descends faster than halving

		if p.opt.Verbose {
			log.Infof("k-mer threshold range: [%d:%d], trying threshold %d", lo, hi, mid)
		}

		for _, w := range workers {
			w.matcher = p.newMatcher(table, mid, 1.0, calibZscoreThr)
			w.kmersPerPos = w.kmersPerPos[:0]
			w.dbMatchesSum = 0
			w.querySeqLenSum = 0
		}
		p.runSample(workers, querySeqs)

		var all []float64
		var dbMatchesSum, querySeqLenSum int64
		for _, w := range workers {
			all = append(all, w.kmersPerPos...)
			dbMatchesSum += w.dbMatchesSum
			querySeqLenSum += w.querySeqLenSum
		}
		kmersPerPos := stat.Mean(all, nil)

		// pseudo-counts: the expected matches of the pseudo length mass
		dbMatchesExpPC := lenSumPC * kmersPerPos *
			math.Pow(1.0/float64(p.subMat.Size-1), float64(p.opt.KmerSize))
		matchProb := (float64(dbMatchesSum) + dbMatchesExpPC) /
			(float64(querySeqLenSum)*float64(targetSeqLenSum) + lenSumPC)

		timeval := model.alpha*kmersPerPos + model.beta*matchProb + model.gamma
		if p.opt.Verbose {
			log.Infof("  k-mers per position = %.4f, k-mer match probability = %g", kmersPerPos, matchProb)
			log.Infof("  time value = %.4f, allowed range: [%.4f:%.4f]", timeval, timevalMin, timevalMax)
		}

		switch {
		case timeval < timevalMin:
			if (timevalMin-timeval) < (timevalMin-timevalBest) || (timevalMin-timeval) < (timevalBest-timevalMax) {
				timevalBest, thrBest, matchProbBest = timeval, mid, matchProb
			}
			hi = mid - 1 // too strict, spend more time
		case timeval > timevalMax:
			if (timeval-timevalMax) < (timevalMin-timevalBest) || (timeval-timevalMax) < (timevalBest-timevalMax) {
				timevalBest, thrBest, matchProbBest = timeval, mid, matchProb
			}
			lo = mid + 1 // too loose, cut the workload
		default:
			achieved := math.Log(timeval) / math.Log(base)
			if p.opt.Verbose {
				log.Infof("k-mer threshold set, yielding sensitivity %.2f", achieved)
			}
			return mid, matchProb, achieved, nil
		}
	}

	achieved := math.Log(timevalBest) / math.Log(base)
	log.Warningf("could not set the k-mer threshold to meet the time value, using the best value obtained so far, yielding sensitivity = %.2f", achieved)
	return thrBest, matchProbBest, achieved, nil
}

// calibWorker is the per-worker scratch of one calibration iteration.
type calibWorker struct {
	qseq    *sequence.Sequence
	matcher *matcher.QueryTemplateMatcher

	kmersPerPos    []float64 // per-query observable, averaged afterwards
	dbMatchesSum   int64
	querySeqLenSum int64
}

// runSample matches the sample queries with the workers' current
// matchers, collecting the observables.
func (p *Prefiltering) runSample(workers []*calibWorker, querySeqs []uint32) {
	var cursor int64
	var wg sync.WaitGroup
	n := int64(len(querySeqs))
	for _, w := range workers {
		wg.Add(1)
		go func(w *calibWorker) {
			defer wg.Done()
			for {
				start := atomic.AddInt64(&cursor, calibChunkSize) - calibChunkSize
				if start >= n {
					return
				}
				end := start + calibChunkSize
				if end > n {
					end = n
				}
				for _, id := range querySeqs[start:end] {
					w.qseq.Map(id, p.qdbr.DbKey(id), p.qdbr.Data(id))
					w.matcher.MatchQuery(w.qseq, matcher.NoSelf)
					w.kmersPerPos = append(w.kmersPerPos, w.qseq.Stats.KmersPerPos)
					w.dbMatchesSum += int64(w.qseq.Stats.DBMatches)
					w.querySeqLenSum += int64(w.qseq.L)
				}
			}
		}(w)
	}
	wg.Wait()
}
