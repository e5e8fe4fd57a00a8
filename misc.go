package mccortex

import (
	"fmt"
	"os"
)

// Verbose gates the progress chatter (reference-indexing progress bar and
// friends). Everything the format requires goes to the gzip stream; these
// helpers only ever write to stderr.
var (
	Verbose = false
)

func Vprint(s string) {
	if !Verbose {
		return
	}
	fmt.Fprint(os.Stderr, s)
}

func Vprintf(format string, v ...interface{}) {
	if !Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, format, v...)
}

func Vprintln(s string) {
	if !Verbose {
		return
	}
	fmt.Fprintln(os.Stderr, s)
}
