// TeenyJVM CLI - loads a compiled class file and executes its main method
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/teenyjvm/manifest"
	"github.com/chazu/teenyjvm/pkg/classfile"
	"github.com/chazu/teenyjvm/pkg/interp"
	"github.com/chazu/teenyjvm/pkg/profile"
)

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0 = quiet)")
	trace := flag.Bool("trace", false, "Log every executed instruction")
	profileRun := flag.Bool("profile", false, "Record run statistics to the profile database")
	profileDB := flag.String("profile-db", "", "Profile database path (overrides teeny.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "USAGE: %s <class file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs main([Ljava/lang/String;)V of a compiled class file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfiguration is read from teeny.toml in the working directory\n")
		fmt.Fprintf(os.Stderr, "when present; flags override it.\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "USAGE: %s <class file>\n", os.Args[0])
		os.Exit(1)
	}
	classPath := flag.Arg(0)

	m, err := manifest.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading teeny.toml: %v\n", err)
		os.Exit(1)
	}
	if *trace {
		m.Run.Trace = true
	}
	if *profileRun {
		m.Profile.Enabled = true
	}
	if *profileDB != "" {
		m.Profile.DB = *profileDB
	}

	// Tracing is emitted at debug level; raise verbosity so it shows.
	if m.Run.Trace && *verbosity < 2 {
		*verbosity = 2
	}
	commonlog.Configure(*verbosity, nil)
	log := commonlog.GetLogger("teeny")

	file, err := os.Open(classPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", classPath, err)
		os.Exit(1)
	}
	class, err := classfile.Parse(file)
	file.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", classPath, err)
		os.Exit(1)
	}
	log.Debugf("parsed %s: %d constants, %d methods",
		classPath, len(class.Pool)-1, len(class.Methods))

	var prof *interp.Profiler
	if m.Profile.Enabled {
		prof = interp.NewProfiler()
	}

	in := interp.New(class, interp.NewHeap(), interp.Options{
		Profiler:     prof,
		Trace:        m.Run.Trace,
		MaxCallDepth: m.Run.MaxCallDepth,
	})

	run := profile.NewRun(classPath)
	err = in.Run()
	run.Duration = time.Since(run.StartedAt)
	run.OK = err == nil

	if prof != nil {
		if storeErr := recordRun(m.DBPath(), run, prof); storeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: recording profile: %v\n", storeErr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing %s: %v\n", classPath, err)
		os.Exit(1)
	}
}

func recordRun(dbPath string, run *profile.Run, prof *interp.Profiler) error {
	store, err := profile.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(run, prof)
}
