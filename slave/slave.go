// Package slave implements the evaluation-slave side of the master/slave
// TCP protocol (component C7, spec §4.6): connect to a master, hand over
// an RNG state, then service EVALUATE_SIMPLE/EVALUATE_GROUPED/CHECKPOINT
// requests until told to shut down.
package slave

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/evoframe/evocore/fitness"
	"github.com/evoframe/evocore/individual"
	"github.com/evoframe/evocore/mtrand"
	"github.com/evoframe/evocore/wire"
)

// ProblemForm is the slave's pluggable evaluator for EVALUATE_SIMPLE
// requests. The out-of-scope "concrete vector-genome operators"
// collaborator plugs in here; vecgenome.SphereProblem is a working
// example used in tests and the demo runner.
type ProblemForm interface {
	EvaluateSimple(ctx context.Context, subpop int, ind *individual.Individual) error
}

// GroupMember is one entry of an EVALUATE_GROUPED request, carrying the
// subpopulation the individual belongs to alongside the individual
// itself so a coevolutionary ProblemForm can tell the players apart.
type GroupMember struct {
	Subpop int
	Ind    *individual.Individual
}

// GroupedProblemForm evaluates a whole group together, e.g. for
// competitive coevolution where fitness depends on how individuals from
// different subpopulations fare against each other. When
// countVictoriesOnly is set the problem should only tally win/loss
// outcomes rather than compute full fitness for every member.
type GroupedProblemForm interface {
	EvaluateGrouped(ctx context.Context, group []GroupMember, countVictoriesOnly bool) error
}

// ReEvolver is the slave's local "temporary EvolutionState" (§4.6,
// run-evolve=true): a fresh, self-contained breed-and-evaluate loop
// seeded with the individuals a master sent for re-evolution. One Step
// is one generation; it reports done when the inner state decides it
// has converged, independent of the wall-clock bound the slave itself
// also enforces.
type ReEvolver interface {
	Step(ctx context.Context) (done bool, err error)
	Subpop0() *individual.Subpopulation
}

// ReEvolverFactory builds a fresh ReEvolver per EVALUATE_SIMPLE request
// when run-evolve is enabled. Per spec, the temporary state is seeded
// with a fresh parameter database (the connection's own parameters do
// not carry over) and the individuals the master sent, injected as
// subpop 0 — seed already reflects that shape.
type ReEvolverFactory func(seed *individual.Subpopulation) (ReEvolver, error)

// Config configures one slave's behavior across however many master
// connections it makes over its lifetime (component A6 wires this up
// from CLI flags and a parameter database).
type Config struct {
	MasterHost string
	MasterPort int

	// SlaveName is sent on handshake. If empty, a default of the form
	// "<local-addr>/<millis>" is generated for each connection
	// (eval.slave-name, §6).
	SlaveName string

	Compress          bool // eval.compression
	ReturnIndividuals bool // eval.return-inds

	RunEvolve    bool // run-evolve
	RunTime      time.Duration // runtime, bound on re-evolve per request
	NewReEvolver ReEvolverFactory

	Problem        ProblemForm
	GroupedProblem GroupedProblemForm

	// NewGenome is indexed by subpopulation so a request naming
	// subpopulation s decodes individuals with subpop s's own genome
	// factory. REDESIGN FLAG: the source indexed a hardcoded subpops[0]
	// here regardless of which subpopulation a request named; this
	// slave looks up the requested index and reports an error instead
	// of silently defaulting to the first.
	NewGenome []func() individual.Genome

	// Dial overrides net.Dial; tests substitute an in-process pipe.
	Dial func(network, address string) (net.Conn, error)

	// RetryInterval is the fixed reconnect sleep (default 100ms, no
	// backoff, no cap, per §4.6/§5).
	RetryInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.RetryInterval <= 0 {
		c.RetryInterval = 100 * time.Millisecond
	}
	if c.Dial == nil {
		c.Dial = net.Dial
	}
}

func (c *Config) genomeFactory(subpop int) (func() individual.Genome, error) {
	if subpop < 0 || subpop >= len(c.NewGenome) {
		return nil, fmt.Errorf("slave: no such subpopulation %d (have %d)", subpop, len(c.NewGenome))
	}
	return c.NewGenome[subpop], nil
}

// handshakeError marks a failure before the slave and master have
// completed the name/RNG-state exchange. Per §4.6 these are fatal; any
// other error once the loop is serving requests is not.
type handshakeError struct{ err error }

func (e *handshakeError) Error() string { return "slave: handshake failed: " + e.err.Error() }
func (e *handshakeError) Unwrap() error { return e.err }

// Run dials the master, serves requests until SHUTDOWN or a fatal
// handshake error, reconnecting on any other I/O failure. It returns
// nil on a clean SHUTDOWN (exit code 0 at the CLI), a non-nil error on
// a fatal handshake failure or context cancellation (non-zero exit).
func Run(ctx context.Context, cfg Config) error {
	cfg.applyDefaults()
	addr := net.JoinHostPort(cfg.MasterHost, strconv.Itoa(cfg.MasterPort))

	for {
		raw, err := dialWithRetry(ctx, &cfg, addr)
		if err != nil {
			return err
		}

		shutdown, err := serveOneConnection(ctx, &cfg, raw)
		if err == nil || shutdown {
			return nil
		}

		var hsErr *handshakeError
		if errors.As(err, &hsErr) {
			return hsErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		log.Printf("slave: connection to %s lost: %v; reconnecting", addr, err)
	}
}

func dialWithRetry(ctx context.Context, cfg *Config, addr string) (net.Conn, error) {
	for {
		conn, err := cfg.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		log.Printf("slave: connect to %s failed: %v; retrying in %s", addr, err, cfg.RetryInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryInterval):
		}
	}
}

func defaultSlaveName(localAddr string) string {
	return fmt.Sprintf("%s/%d", localAddr, time.Now().UnixMilli())
}

// serveOneConnection runs the handshake and opcode dispatch loop over a
// single TCP connection. shutdown reports whether the master sent
// SHUTDOWN (a clean, expected end of the connection); any other
// returned error after the handshake is a transient I/O failure the
// caller should reconnect on.
func serveOneConnection(ctx context.Context, cfg *Config, raw net.Conn) (shutdown bool, err error) {
	defer raw.Close()

	conn, err := wire.Wrap(raw, cfg.Compress)
	if err != nil {
		return false, &handshakeError{err}
	}

	name := cfg.SlaveName
	if name == "" {
		name = defaultSlaveName(raw.LocalAddr().String())
	}
	if err := wire.WriteString(conn, name); err != nil {
		return false, &handshakeError{err}
	}
	if err := conn.Flush(); err != nil {
		return false, &handshakeError{err}
	}

	rng := mtrand.New(0)
	if err := rng.ReadState(conn); err != nil {
		return false, &handshakeError{err}
	}

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		opByte, err := wire.ReadByte(conn)
		if err != nil {
			return false, err
		}

		switch Opcode(opByte) {
		case OpShutdown:
			return true, nil

		case OpEvaluateSimple:
			if err := cfg.handleEvaluateSimple(ctx, conn); err != nil {
				return false, err
			}

		case OpEvaluateGrouped:
			if err := cfg.handleEvaluateGrouped(ctx, conn); err != nil {
				return false, err
			}

		case OpCheckpoint:
			if err := rng.WriteState(conn); err != nil {
				return false, err
			}
			if err := conn.Flush(); err != nil {
				return false, err
			}

		default:
			return false, fmt.Errorf("slave: unknown opcode %d", opByte)
		}
	}
}

func (cfg *Config) handleEvaluateSimple(ctx context.Context, conn *wire.Conn) error {
	n, err := wire.ReadInt32(conn)
	if err != nil {
		return err
	}
	subpop32, err := wire.ReadInt32(conn)
	if err != nil {
		return err
	}
	subpop := int(subpop32)

	genomeFactory, err := cfg.genomeFactory(subpop)
	if err != nil {
		return err
	}

	inds := make([]*individual.Individual, n)
	updateFitness := make([]bool, n)
	for i := range inds {
		ind, err := individual.ReadBinary(conn, genomeFactory)
		if err != nil {
			return err
		}
		uf, err := wire.ReadBool(conn)
		if err != nil {
			return err
		}
		inds[i] = ind
		updateFitness[i] = uf
	}

	if cfg.RunEvolve {
		evolved, err := cfg.runReEvolve(ctx, inds)
		if err != nil {
			return err
		}
		inds = evolved
	} else {
		for _, ind := range inds {
			if err := cfg.Problem.EvaluateSimple(ctx, subpop, ind); err != nil {
				return err
			}
		}
	}

	for i, ind := range inds {
		if err := cfg.writeResult(conn, ind, updateFitness[i]); err != nil {
			return err
		}
	}
	return conn.Flush()
}

func (cfg *Config) handleEvaluateGrouped(ctx context.Context, conn *wire.Conn) error {
	n, err := wire.ReadInt32(conn)
	if err != nil {
		return err
	}

	group := make([]GroupMember, n)
	updateFitness := make([]bool, n)
	for i := range group {
		subpop32, err := wire.ReadInt32(conn)
		if err != nil {
			return err
		}
		subpop := int(subpop32)
		genomeFactory, err := cfg.genomeFactory(subpop)
		if err != nil {
			return err
		}
		ind, err := individual.ReadBinary(conn, genomeFactory)
		if err != nil {
			return err
		}
		uf, err := wire.ReadBool(conn)
		if err != nil {
			return err
		}
		group[i] = GroupMember{Subpop: subpop, Ind: ind}
		updateFitness[i] = uf
	}

	countVictoriesOnly, err := wire.ReadBool(conn)
	if err != nil {
		return err
	}

	if cfg.GroupedProblem != nil {
		if err := cfg.GroupedProblem.EvaluateGrouped(ctx, group, countVictoriesOnly); err != nil {
			return err
		}
	}

	for i, member := range group {
		if err := cfg.writeResult(conn, member.Ind, updateFitness[i]); err != nil {
			return err
		}
	}
	return conn.Flush()
}

// writeResult encodes one individual's result body per §4.6: a full
// individual if the slave was configured to return them, else its
// fitness if the caller asked for it, else nothing.
func (cfg *Config) writeResult(w *wire.Conn, ind *individual.Individual, updateFitness bool) error {
	if cfg.ReturnIndividuals {
		if err := wire.WriteByte(w, byte(ResultIndividual)); err != nil {
			return err
		}
		return individual.WriteBinary(w, ind)
	}
	if updateFitness {
		if err := wire.WriteByte(w, byte(ResultFitness)); err != nil {
			return err
		}
		if err := wire.WriteBool(w, ind.Evaluated); err != nil {
			return err
		}
		if !ind.Evaluated {
			return nil
		}
		return fitness.EncodeBinary(w, ind.Fit)
	}
	return wire.WriteByte(w, byte(ResultNothing))
}

// runReEvolve drives a temporary ReEvolver seeded with seed as subpop 0
// until it signals done or RunTime elapses, then returns the final
// subpop 0 individuals.
func (cfg *Config) runReEvolve(ctx context.Context, seed []*individual.Individual) ([]*individual.Individual, error) {
	if cfg.NewReEvolver == nil {
		return nil, fmt.Errorf("slave: run-evolve enabled but no ReEvolverFactory configured")
	}
	state, err := cfg.NewReEvolver(&individual.Subpopulation{Individuals: seed})
	if err != nil {
		return nil, fmt.Errorf("slave: starting re-evolution: %w", err)
	}

	deadline := time.Now().Add(cfg.RunTime)
	for {
		done, err := state.Step(ctx)
		if err != nil {
			return nil, fmt.Errorf("slave: re-evolution step: %w", err)
		}
		if done || !time.Now().Before(deadline) {
			return state.Subpop0().Individuals, nil
		}
	}
}
