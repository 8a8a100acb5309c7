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
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"

	"github.com/seqfilter/seqfilter/seqfilter/sequence"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Prefilter queries against a target database",
	Long: `Prefilter queries against a target database

For every query sequence, compute a ranked short-list of candidate
target sequences whose k-mer similarity exceeds a calibrated
probabilistic threshold.

Attention:
  1. Query and target databases are key-to-blob stores: a flat data
     file plus a ".index" file of "key<TAB>offset<TAB>length" lines.
  2. The k-mer similarity threshold is auto-calibrated before the run
     so that the predicted per-query cost is close to 2^sensitivity.
  3. Large target databases can be processed in splits (--split-size)
     to bound the peak memory of the k-mer index table.

Output format:
  One result blob per query, written under the query's key; one hit per
  line, sorted by descending z-score:

    targetKey <TAB> zScore <TAB> prefScore

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		if opt.Log2File {
			fhLog := addLog(opt.LogFile, opt.Verbose)
			defer fhLog.Close()
		}

		timeStart := time.Now()
		defer func() {
			if opt.Verbose {
				log.Infof("elapsed time: %s", time.Since(timeStart))
			}
		}()

		queryDB := expandPath(getFlagString(cmd, "query-db"))
		targetDB := expandPath(getFlagString(cmd, "target-db"))
		outDB := expandPath(getFlagString(cmd, "out-db"))
		if queryDB == "" || targetDB == "" || outDB == "" {
			checkError(fmt.Errorf("flags -q/--query-db, -t/--target-db and -o/--out-db are needed"))
		}
		for _, db := range []string{queryDB, targetDB} {
			for _, file := range []string{db, db + ".index"} {
				ok, err := pathutil.Exists(file)
				checkError(errors.Wrap(err, file))
				if !ok {
					checkError(fmt.Errorf("database file not found: %s", file))
				}
			}
		}

		queryType, ok := sequence.ParseSeqType(getFlagString(cmd, "query-seq-type"))
		if !ok {
			checkError(fmt.Errorf("invalid query sequence type: %s", getFlagString(cmd, "query-seq-type")))
		}
		targetType, ok := sequence.ParseSeqType(getFlagString(cmd, "target-seq-type"))
		if !ok {
			checkError(fmt.Errorf("invalid target sequence type: %s", getFlagString(cmd, "target-seq-type")))
		}

		popt := &PrefilteringOptions{
			QueryDB:  queryDB,
			TargetDB: targetDB,
			OutDB:    outDB,

			ScoringMatrixFile: getFlagString(cmd, "sub-matrix"),

			Sensitivity:   getFlagPositiveFloat64(cmd, "sensitivity"),
			KmerSize:      getFlagPositiveInt(cmd, "kmer-size"),
			MaxResListLen: getFlagPositiveInt(cmd, "max-seqs"),
			AlphabetSize:  getFlagPositiveInt(cmd, "alphabet-size"),
			ZscoreThr:     getFlagFloat64(cmd, "zscore-threshold"),
			MaxSeqLen:     getFlagPositiveInt(cmd, "max-seq-len"),

			QuerySeqType:  queryType,
			TargetSeqType: targetType,

			AABiasCorrection: getFlagBool(cmd, "bias-correction"),
			SplitSize:        getFlagNonNegativeInt(cmd, "split-size"),
			Skip:             getFlagNonNegativeInt(cmd, "skip"),

			KmerThreshold: getFlagNonNegativeInt(cmd, "kmer-threshold"),
			KmerMatchProb: getFlagNonNegativeFloat64(cmd, "kmer-match-prob"),

			BufferSize: getFlagPositiveInt(cmd, "buffer-size"),

			ShardRank:  getFlagNonNegativeInt(cmd, "shard-rank"),
			ShardCount: getFlagPositiveInt(cmd, "shard-count"),

			NumCPUs: opt.NumCPUs,
			Verbose: opt.Verbose,
		}

		p, err := NewPrefiltering(popt)
		checkError(err)
		checkError(p.Run())

		if opt.Verbose {
			log.Infof("prefiltering results saved to: %s", outDB)
		}
	},
}

func init() {
	RootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("query-db", "q", "",
		formatFlagUsage(`Query database (with a corresponding ".index" file).`))
	searchCmd.Flags().StringP("target-db", "t", "",
		formatFlagUsage(`Target database (with a corresponding ".index" file).`))
	searchCmd.Flags().StringP("out-db", "o", "",
		formatFlagUsage(`Output database prefix; temporary splits are written to <out-db>_tmp_<n>.`))

	searchCmd.Flags().StringP("sub-matrix", "m", "",
		formatFlagUsage(`Substitution matrix file in NCBI format; the compiled-in BLOSUM62 is used when empty.`))

	searchCmd.Flags().Float64P("sensitivity", "s", 4.0,
		formatFlagUsage(`Target sensitivity: the k-mer threshold is calibrated so the predicted per-query cost is close to 2^sensitivity.`))
	searchCmd.Flags().IntP("kmer-size", "k", 6,
		formatFlagUsage(`K-mer size, one of 4, 5, 6, 7.`))
	searchCmd.Flags().IntP("max-seqs", "n", 300,
		formatFlagUsage(`Maximum number of prefiltering results per query.`))
	searchCmd.Flags().IntP("alphabet-size", "a", 21,
		formatFlagUsage(`Effective amino-acid alphabet size; values below 21 trigger alphabet reduction.`))
	searchCmd.Flags().Float64P("zscore-threshold", "z", 50.0,
		formatFlagUsage(`Minimum z-score to report a hit.`))
	searchCmd.Flags().IntP("max-seq-len", "L", 32768,
		formatFlagUsage(`Maximum sequence length; longer sequences are truncated.`))

	searchCmd.Flags().StringP("query-seq-type", "", "aa",
		formatFlagUsage(`Query sequence type: "aa", "nt" or "profile".`))
	searchCmd.Flags().StringP("target-seq-type", "", "aa",
		formatFlagUsage(`Target sequence type: "aa" or "nt".`))

	searchCmd.Flags().BoolP("bias-correction", "b", true,
		formatFlagUsage(`Enable local composition bias correction of the k-mer threshold.`))
	searchCmd.Flags().IntP("split-size", "", 0,
		formatFlagUsage(`Number of targets per split (0 for all targets in one split); splits bound the peak memory of the index table.`))
	searchCmd.Flags().IntP("skip", "", 0,
		formatFlagUsage(`Index every (skip+1)-th target position only.`))

	searchCmd.Flags().IntP("kmer-threshold", "", 0,
		formatFlagUsage(`Manual k-mer similarity threshold, skips the calibration (0 for auto); needs --kmer-match-prob.`))
	searchCmd.Flags().Float64P("kmer-match-prob", "", 0,
		formatFlagUsage(`K-mer match probability to use with a manual threshold.`))

	searchCmd.Flags().IntP("buffer-size", "", 1<<20,
		formatFlagUsage(`Per-query output blob cap in bytes; larger result lists are skipped with a warning.`))

	searchCmd.Flags().IntP("shard-rank", "", 0,
		formatFlagUsage(`Rank of this host when the target range is sharded across hosts.`))
	searchCmd.Flags().IntP("shard-count", "", 1,
		formatFlagUsage(`Number of hosts the target range is sharded over; rank 0 merges.`))

	searchCmd.SetUsageTemplate(usageTemplate("-q <query db> -t <target db> -o <out db> [flags]"))
}
