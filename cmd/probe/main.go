// Command probe inspects a sample of an XML corpus before a full
// flattening run.
//
// It discovers METS/MODS and ALTO files under the given inputs, classifies
// each by schema, and summarizes the columns a run over the corpus would
// produce. Files that cannot be parsed are reported, not fatal.
//
// Output modes:
//
//   - Default: a human-readable text report on stdout.
//   - -json: the full report as JSON, including per-file detail.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"modstab/internal/probe"
)

func main() {
	var (
		flagMaxFiles = flag.Int("max-files", 100, "Maximum number of files to inspect (0 = all)")
		flagJSON     = flag.Bool("json", false, "Emit the full report as JSON instead of text")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <file-or-dir>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "missing input files or directories")
		flag.Usage()
		os.Exit(2)
	}

	rep, err := probe.Corpus(context.Background(), flag.Args(), probe.Options{
		MaxFiles: *flagMaxFiles,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}

	if *flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintln(os.Stdout, rep.Text())
}
