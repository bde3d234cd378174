package datalog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lucidscript/lucid/internal/constraint"
)

// Evaluator runs a Datalog program (rules + facts, as produced by
// Encoder.Program) to fixed point and reports which subtype/2 facts it
// derived. Implementations are free to be in-process or, as with
// SubprocessEvaluator, shell out to a real Datalog engine: this package
// treats the evaluator purely as an external collaborator (spec §6).
type Evaluator interface {
	Solve(ctx context.Context, program string) ([]SubtypePair, error)
}

// SubtypePair is one derived subtype/2 result, by atom id.
type SubtypePair struct {
	Sub, Super string
}

// SubprocessEvaluator runs an external Datalog engine (XSB or compatible)
// as a child process. Each run gets its own temp file, named with a fresh
// UUID so concurrent runs in the same working directory never collide.
type SubprocessEvaluator struct {
	// Binary is the evaluator executable name or path, e.g. "xsb".
	Binary string
	// Args are any extra flags to pass before the generated file path.
	Args []string
	// Dir is the directory temp programs are written to; defaults to
	// os.TempDir() when empty.
	Dir string
}

// Solve writes program to a temp file, runs the configured binary against
// it, and parses "RESULT: <sub> <super>" lines from stdout. The child's
// stdout is read to completion before Wait is called, so a evaluator that
// buffers a large result set cannot deadlock the pipe.
func (e SubprocessEvaluator) Solve(ctx context.Context, program string) ([]SubtypePair, error) {
	dir := e.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("subtyping-%s.pl", uuid.NewString()))
	if err := os.WriteFile(path, []byte(program), 0o600); err != nil {
		return nil, fmt.Errorf("%w: writing program file: %v", constraint.ErrSubprocessFailed, err)
	}
	defer os.Remove(path)

	args := append(append([]string{}, e.Args...), path)
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constraint.ErrSubprocessFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", constraint.ErrSubprocessFailed, err)
	}

	out, readErr := io.ReadAll(stdout)
	waitErr := cmd.Wait()
	if waitErr != nil {
		return nil, fmt.Errorf("%w: %v", constraint.ErrSubprocessFailed, waitErr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading stdout: %v", constraint.ErrSubprocessFailed, readErr)
	}
	return parseResults(out), nil
}

func parseResults(output []byte) []SubtypePair {
	var results []SubtypePair
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, ok := strings.CutPrefix(line, "RESULT:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			continue
		}
		results = append(results, SubtypePair{Sub: fields[0], Super: fields[1]})
	}
	return results
}

// Solve runs e against enc's program and translates every result back into
// a constraint.Constraint using enc's id table, discarding any id the
// evaluator mentions that enc did not itself mint (defensive against a
// misbehaving evaluator).
func Solve(ctx context.Context, ev Evaluator, enc *Encoder) ([]constraint.Constraint, error) {
	pairs, err := ev.Solve(ctx, enc.Program())
	if err != nil {
		return nil, err
	}
	out := make([]constraint.Constraint, 0, len(pairs))
	for _, p := range pairs {
		sub, ok1 := enc.TypeByID(p.Sub)
		super, ok2 := enc.TypeByID(p.Super)
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, constraint.Constraint{Left: sub, Right: super, Kind: constraint.KindSubtype})
	}
	return out, nil
}
