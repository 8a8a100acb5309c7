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

	"github.com/spf13/cobra"

	"github.com/seqfilter/seqfilter/seqfilter/ffindex"
)

var mergedbCmd = &cobra.Command{
	Use:   "mergedb",
	Short: "Merge multiple databases by key into one",
	Long: `Merge multiple databases by key into one

For every entry of the reference database, the blobs stored under the
same key in the given input databases are concatenated into one output
blob. Inputs missing a key contribute nothing.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		refDB := expandPath(getFlagString(cmd, "ref-db"))
		outDB := expandPath(getFlagString(cmd, "out-db"))
		if refDB == "" || outDB == "" {
			checkError(fmt.Errorf("flags -r/--ref-db and -o/--out-db are needed"))
		}
		if len(args) == 0 {
			checkError(fmt.Errorf("at least one input database is needed"))
		}

		reader, err := ffindex.Open(refDB, ffindex.NoSort)
		checkError(err)
		defer reader.Close()

		checkError(ffindex.ErrorIfExists(outDB))
		writer := ffindex.NewWriter(outDB, 1)
		checkError(writer.Open())
		checkError(writer.MergeFiles(reader, args, getFlagPositiveInt(cmd, "buffer-size")))
		checkError(writer.Close())

		if opt.Verbose {
			log.Infof("merged database saved to: %s", outDB)
		}
	},
}

func init() {
	RootCmd.AddCommand(mergedbCmd)

	mergedbCmd.Flags().StringP("ref-db", "r", "",
		formatFlagUsage(`Reference database providing the key order.`))
	mergedbCmd.Flags().StringP("out-db", "o", "",
		formatFlagUsage(`Output database.`))
	mergedbCmd.Flags().IntP("buffer-size", "", 1<<20,
		formatFlagUsage(`Initial merge buffer size in bytes.`))

	mergedbCmd.SetUsageTemplate(usageTemplate("-r <ref db> -o <out db> <in db1> [in db2 ...]"))
}
