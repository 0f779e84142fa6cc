// Command evoslave is the evaluation-slave entry point (component A6,
// spec §6): parse CLI flags, load a parameter database, wire a problem
// and a genome kind, then run the slave/master protocol until shutdown
// or a fatal setup error.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/evoframe/evocore/errsink"
	"github.com/evoframe/evocore/individual"
	"github.com/evoframe/evocore/paramdb"
	"github.com/evoframe/evocore/slave"
	"github.com/evoframe/evocore/vecgenome"
)

func main() {
	var (
		file       = pflag.String("file", "", "parameter file (required unless -checkpoint is given)")
		checkpoint = pflag.String("checkpoint", "", "checkpoint file to resume from (alternative to -file)")
	)
	// pflag reads a single-dash word such as "-file" as a cluster of
	// shorthand flags, so the single-dash spellings of the two long flags
	// are rewritten to their double-dash form before parsing.
	for i, arg := range os.Args[1:] {
		name := arg
		if k, _, ok := splitKeyValue(arg); ok {
			name = k
		}
		if name == "-file" || name == "-checkpoint" {
			os.Args[i+1] = "-" + arg
		}
	}
	pflag.Parse()

	var sink errsink.Sink
	if *file == "" && *checkpoint == "" {
		sink.Addf("one of -file or -checkpoint is required")
		sink.ExitIfErrors()
	}

	db := paramdb.New()
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			sink.Addf("opening parameter file %q: %w", *file, err)
		} else {
			defer f.Close()
			if err := db.Load(f); err != nil {
				sink.Addf("loading parameter file %q: %w", *file, err)
			}
		}
	}
	// Unknown arguments are forwarded to the parameter database as
	// overlay entries (§6: "unknown args are forwarded to the parameter
	// database"), one "key=value" pair per positional argument.
	for _, arg := range pflag.Args() {
		key, value, ok := splitKeyValue(arg)
		if !ok {
			sink.Addf("unrecognized argument %q (want key=value)", arg)
			continue
		}
		db.Overlay(key, value)
	}
	sink.ExitIfErrors()

	cfg, err := configFromParams(db)
	if err != nil {
		sink.Add(err)
		sink.ExitIfErrors()
	}

	if err := slave.Run(context.Background(), cfg); err != nil {
		log.Fatalf("evoslave: %v", err)
	}
}

func splitKeyValue(s string) (key, value string, ok bool) {
	for i, c := range s {
		if c == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// configFromParams builds a slave.Config from the recognized parameters
// in §6. Only a single vecgenome subpopulation is wired up here; a
// richer problem/genome registry belongs to whatever calling system
// embeds this command.
func configFromParams(db *paramdb.Database) (slave.Config, error) {
	host, _ := db.String("eval.master.host")
	if host == "" {
		return slave.Config{}, fmt.Errorf("evoslave: eval.master.host is required")
	}
	port, ok := db.Int("eval.master.port")
	if !ok {
		return slave.Config{}, fmt.Errorf("evoslave: eval.master.port is required")
	}
	name, _ := db.String("eval.slave-name")
	compress, _ := db.Bool("eval.compression")
	returnInds, _ := db.Bool("eval.return-inds")
	runEvolve, _ := db.Bool("run-evolve")
	runtimeMS, _ := db.Int("runtime")

	length, _ := db.Int("multi.num-objectives")
	if length <= 0 {
		length = 1
	}
	species := &vecgenome.Species{
		Length:        length,
		Min:           uniform(length, -5),
		Max:           uniform(length, 5),
		MutationSigma: 0.1,
	}

	cfg := slave.Config{
		MasterHost:        host,
		MasterPort:        port,
		SlaveName:         name,
		Compress:          compress,
		ReturnIndividuals: returnInds,
		RunEvolve:         runEvolve,
		Problem:           vecgenome.SphereProblem{},
		NewGenome:         []func() individual.Genome{vecgenome.NewGenomeFactory(species)},
	}
	if runtimeMS > 0 {
		cfg.RunTime = time.Duration(runtimeMS) * time.Millisecond
	}
	if runEvolve {
		mu, _ := db.Int("es.mu.0")
		lambda, _ := db.Int("es.lambda.0")
		if mu <= 0 {
			mu = 5
		}
		if lambda <= 0 {
			lambda = 10
		}
		seed, _ := db.Int("seed")
		cfg.NewReEvolver = func(sub *individual.Subpopulation) (slave.ReEvolver, error) {
			return vecgenome.NewReEvolveState(sub, mu, lambda, int64(seed), vecgenome.SphereProblem{})
		}
	}
	return cfg, nil
}

func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
