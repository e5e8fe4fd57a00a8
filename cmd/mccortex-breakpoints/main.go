package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/student-t/mccortex"
)

var (
	flagGoMaxProcs  = runtime.NumCPU()
	flagKmerSize    = 31
	flagNumThreads  = runtime.NumCPU()
	flagMinRefFlank = mccortex.DefaultMinRefFlank
	flagMaxRefFlank = mccortex.DefaultMaxRefFlank
	flagOut         = "-"
	flagVerbose     = false

	flagCpuProfile = ""
	flagMemProfile = ""
)

func init() {
	log.SetFlags(0)

	flag.IntVar(&flagGoMaxProcs, "p", flagGoMaxProcs,
		"The maximum number of CPUs that can be executing simultaneously.")
	flag.IntVar(&flagKmerSize, "k", flagKmerSize,
		"The kmer size of the graph. Must be odd and at most 31.")
	flag.IntVar(&flagNumThreads, "threads", flagNumThreads,
		"The number of breakpoint-calling worker threads.")
	flag.IntVar(&flagMinRefFlank, "min-ref-flank", flagMinRefFlank,
		"The minimum number of kmers of reference homology required \n"+
			"on each side of a breakpoint.")
	flag.IntVar(&flagMaxRefFlank, "max-ref-flank", flagMaxRefFlank,
		"The maximum number of kmers walked while collecting the \n"+
			"5' flank.")
	flag.StringVar(&flagOut, "out", flagOut,
		"Where to write the gzipped breakpoint calls ('-' for stdout).")
	flag.BoolVar(&flagVerbose, "verbose", flagVerbose,
		"When set, progress is reported to stderr.")

	flag.StringVar(&flagCpuProfile, "cpuprofile", flagCpuProfile,
		"When set, a CPU profile will be written to the file specified.")
	flag.StringVar(&flagMemProfile, "memprofile", flagMemProfile,
		"When set, a memory profile will be written to the file specified.")
}

func main() {
	if flag.NArg() < 2 {
		flag.Usage()
	}

	if len(flagCpuProfile) > 0 {
		f, err := os.Create(flagCpuProfile)
		if err != nil {
			fatalf("%s\n", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	mccortex.Verbose = flagVerbose

	refPath := flag.Arg(0)
	samplePaths := flag.Args()[1:]

	refs, err := mccortex.ReadAllSequences(refPath)
	if err != nil {
		fatalf("Could not read reference %s: %s\n", refPath, err)
	}
	if len(refs) == 0 {
		fatalf("Reference %s contains no sequences.\n", refPath)
	}

	// One colour per sample file; the reference contributes structure
	// but no colour.
	graph := mccortex.NewGraph(flagKmerSize, len(samplePaths))
	for colour, samplePath := range samplePaths {
		seqChan, err := mccortex.ReadSequences(samplePath)
		if err != nil {
			fatalf("Could not read sample %s: %s\n", samplePath, err)
		}
		for readSeq := range seqChan {
			if readSeq.Err != nil {
				fatalf("Could not read sample %s: %s\n",
					samplePath, readSeq.Err)
			}
			graph.AddSequence(readSeq.Seq.Residues, colour)
		}
	}
	for _, ref := range refs {
		graph.AddSequence(ref.Residues, mccortex.NoColour)
	}

	out := os.Stdout
	if flagOut != "-" && flagOut != "" {
		out, err = os.Create(flagOut)
		if err != nil {
			fatalf("Could not create %s: %s\n", flagOut, err)
		}
		defer out.Close()
	}

	cfg := &mccortex.Config{
		NumThreads:  flagNumThreads,
		MinRefFlank: flagMinRefFlank,
		MaxRefFlank: flagMaxRefFlank,
		OutPath:     flagOut,
		SeqPaths:    []string{refPath},
		CommandLine: strings.Join(os.Args, " "),
	}
	if _, err := mccortex.CallBreakpoints(
		graph, refs, mccortex.NoLinks, out, cfg); err != nil {
		fatalf("Breakpoint calling failed: %s\n", err)
	}

	if len(flagMemProfile) > 0 {
		writeMemProfile(flagMemProfile)
	}
}

func errorf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format, v...)
}

func fatalf(format string, v ...interface{}) {
	errorf(format, v...)
	os.Exit(1)
}

func writeMemProfile(name string) {
	f, err := os.Create(name)
	if err != nil {
		fatalf("%s\n", err)
	}
	pprof.WriteHeapProfile(f)
	f.Close()
}

func init() {
	flag.Usage = usage
	flag.Parse()

	runtime.GOMAXPROCS(flagGoMaxProcs)
}

func usage() {
	fmt.Fprintf(os.Stderr,
		"Usage: %s [flags] reference-fasta sample-fasta [sample-fasta ...]\n",
		path.Base(os.Args[0]))
	flag.PrintDefaults()
	os.Exit(1)
}
