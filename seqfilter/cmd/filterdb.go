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
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"

	"github.com/seqfilter/seqfilter/seqfilter/ffindex"
)

var filterdbCmd = &cobra.Command{
	Use:   "filterdb",
	Short: "Filter or map the text lines of a database",
	Long: `Filter or map the text lines of a database

Each entry of the input database is treated as tab-separated text
lines. Exactly one filter is applied per run:

  --lines N          keep the first N lines of every entry
  --regex EXPR       keep lines whose selected column matches EXPR
  --filter-file F    keep lines whose selected column is listed in F
                     (--negative drops them instead)
  --mapping-file F   replace the selected column through a two-column
                     "old<TAB>new" mapping, dropping unmapped lines

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		inDB := expandPath(getFlagString(cmd, "in-db"))
		outDB := expandPath(getFlagString(cmd, "out-db"))
		if inDB == "" || outDB == "" {
			checkError(fmt.Errorf("flags -i/--in-db and -o/--out-db are needed"))
		}
		column := getFlagPositiveInt(cmd, "column") - 1
		lines := getFlagNonNegativeInt(cmd, "lines")
		regexStr := getFlagString(cmd, "regex")
		trimToColumn := getFlagBool(cmd, "trim-to-column")
		filterFile := getFlagString(cmd, "filter-file")
		negative := getFlagBool(cmd, "negative")
		mappingFile := getFlagString(cmd, "mapping-file")

		nFilters := 0
		for _, on := range []bool{lines > 0, regexStr != "", filterFile != "", mappingFile != ""} {
			if on {
				nFilters++
			}
		}
		if nFilters != 1 {
			checkError(fmt.Errorf("exactly one of --lines, --regex, --filter-file and --mapping-file is needed"))
		}

		var filter func(line string) (string, bool)
		switch {
		case lines > 0:
			// handled per entry below
		case regexStr != "":
			re, err := regexp.Compile(regexStr)
			if err != nil {
				checkError(fmt.Errorf("error in regex %s: %s", regexStr, err))
			}
			filter = func(line string) (string, bool) {
				col, ok := columnOf(line, column)
				if !ok || !re.MatchString(col) {
					return "", false
				}
				if trimToColumn {
					return col, true
				}
				return line, true
			}
		case filterFile != "":
			set := readFilterSet(filterFile)
			filter = func(line string) (string, bool) {
				col, ok := columnOf(line, column)
				if !ok {
					return "", false
				}
				_, in := set[col]
				if in == negative {
					return "", false
				}
				return line, true
			}
		case mappingFile != "":
			mapping := readMapping(mappingFile)
			filter = func(line string) (string, bool) {
				fields := strings.Split(line, "\t")
				if column >= len(fields) {
					return "", false
				}
				mapped, ok := mapping[fields[column]]
				if !ok {
					return "", false
				}
				fields[column] = mapped
				return strings.Join(fields, "\t"), true
			}
		}

		reader, err := ffindex.Open(inDB, ffindex.LinearAccess)
		checkError(err)
		defer reader.Close()

		checkError(ffindex.ErrorIfExists(outDB))
		writer := ffindex.NewWriter(outDB, 1)
		checkError(writer.Open())

		var out bytes.Buffer
		for id := uint32(0); id < uint32(reader.Size()); id++ {
			out.Reset()
			kept := 0
			for _, line := range strings.Split(string(reader.Data(id)), "\n") {
				if line == "" {
					continue
				}
				if lines > 0 {
					if kept == lines {
						break
					}
					out.WriteString(line)
					out.WriteByte('\n')
					kept++
					continue
				}
				if mapped, ok := filter(line); ok {
					out.WriteString(mapped)
					out.WriteByte('\n')
				}
			}
			checkError(writer.Write(out.Bytes(), reader.DbKey(id), 0))
		}
		checkError(writer.Close())

		if opt.Verbose {
			log.Infof("filtered database saved to: %s", outDB)
		}
	},
}

func columnOf(line string, column int) (string, bool) {
	fields := strings.Split(line, "\t")
	if column >= len(fields) {
		return "", false
	}
	return fields[column], true
}

func readFilterSet(file string) map[string]struct{} {
	fh, err := xopen.Ropen(file)
	checkError(err)
	defer fh.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			set[line] = struct{}{}
		}
	}
	checkError(scanner.Err())
	return set
}

func readMapping(file string) map[string]string {
	fh, err := xopen.Ropen(file)
	checkError(err)
	defer fh.Close()

	mapping := make(map[string]string)
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			checkError(fmt.Errorf("invalid mapping line: %s", line))
		}
		mapping[fields[0]] = fields[1]
	}
	checkError(scanner.Err())
	return mapping
}

func init() {
	RootCmd.AddCommand(filterdbCmd)

	filterdbCmd.Flags().StringP("in-db", "i", "",
		formatFlagUsage(`Input database.`))
	filterdbCmd.Flags().StringP("out-db", "o", "",
		formatFlagUsage(`Output database.`))
	filterdbCmd.Flags().IntP("column", "c", 1,
		formatFlagUsage(`Column to filter on (1-based).`))
	filterdbCmd.Flags().IntP("lines", "l", 0,
		formatFlagUsage(`Keep the first N lines of every entry.`))
	filterdbCmd.Flags().StringP("regex", "r", "",
		formatFlagUsage(`Keep lines whose selected column matches this regular expression.`))
	filterdbCmd.Flags().BoolP("trim-to-column", "", false,
		formatFlagUsage(`With --regex, output only the selected column.`))
	filterdbCmd.Flags().StringP("filter-file", "f", "",
		formatFlagUsage(`Keep lines whose selected column is listed in this file.`))
	filterdbCmd.Flags().BoolP("negative", "", false,
		formatFlagUsage(`With --filter-file, drop listed lines instead of keeping them.`))
	filterdbCmd.Flags().StringP("mapping-file", "", "",
		formatFlagUsage(`Map the selected column through a two-column "old<TAB>new" file.`))

	filterdbCmd.SetUsageTemplate(usageTemplate("-i <in db> -o <out db> [flags]"))
}
