package main

import "github.com/seqfilter/seqfilter/seqfilter/cmd"

func main() {
	cmd.Execute()
}
