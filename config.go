package mccortex

// Defaults for the reference-homology requirements: a breakpoint needs at
// least MinRefFlank k-mers of reference agreement on each side, and the 5'
// reverse crawl gives up after MaxRefFlank k-mers.
const (
	DefaultMinRefFlank = 5
	DefaultMaxRefFlank = 1000
)

// Config carries the parameters of one breakpoint-calling run.
type Config struct {
	// NumThreads is the worker pool size. Each worker claims a disjoint
	// stride of the graph's hash slots.
	NumThreads int

	// MinRefFlank and MaxRefFlank are measured in k-mers, not bases.
	MinRefFlank int
	MaxRefFlank int

	// OutPath is where the gzip call stream goes; used in status output
	// and nothing else (the engine writes to whatever io.Writer it is
	// handed).
	OutPath string

	// SeqPaths are the reference FASTA paths, recorded in the output
	// header.
	SeqPaths []string

	// CommandLine is the invoking command, recorded in the output header.
	CommandLine string
}

var DefaultConfig = &Config{
	NumThreads:  1,
	MinRefFlank: DefaultMinRefFlank,
	MaxRefFlank: DefaultMaxRefFlank,
	OutPath:     "-",
}
