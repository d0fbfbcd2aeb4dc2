// Command document-embed ingests a directory of documents into a local
// vector collection and answers nearest neighbour queries against it.
//
// Usage:
//
//	document-embed [flags] <command> [args]
//
// Commands:
//
//	run       - prompt for settings, ingest a directory and run one query
//	ingest    - chunk, embed and store every document of a directory
//	query     - find the stored chunks closest to a text
//	ask       - answer a question using the closest chunks as context
//	search    - list stored chunks by document name
//	count     - number of stored chunks
//	clear     - delete every stored chunk
//	export    - write the collection to a chromem-go file
//	settings  - show, set, import or prompt for settings
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(args []string, in io.Reader, out io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	return root.Execute()
}
