// Package cbc solves models with the COIN-OR CBC command line solver.
//
// The Builder buffers the model in an lpfile.Writer, writes it to a
// temporary directory, runs "cbc model.lp [sec N] solve solu model.sol" and
// reads the solution file back.
package cbc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/lpfile"
)

// DefaultBinary is looked up on PATH when Options.Binary is empty.
const DefaultBinary = "cbc"

// Options configures a Builder.
type Options struct {
	Binary    string        // path or name of the cbc executable
	TimeLimit time.Duration // 0 means no limit
	Logger    *slog.Logger
}

// Builder is a builder.Builder backed by the cbc executable.
type Builder struct {
	*lpfile.Writer
	opts   Options
	status builder.Status
	values []float64
}

// New returns a Builder for a model named name.
func New(name string, opts Options) *Builder {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{Writer: lpfile.NewWriter(name), opts: opts}
}

// Solve implements builder.Builder. It runs cbc once; cancellation of ctx
// kills the process and surfaces as an error.
func (b *Builder) Solve(ctx context.Context) (builder.Status, error) {
	bin, err := exec.LookPath(b.opts.Binary)
	if err != nil {
		return builder.StatusError, fmt.Errorf("cbc: %w", err)
	}
	dir, err := os.MkdirTemp("", "sigma-cbc-")
	if err != nil {
		return builder.StatusError, fmt.Errorf("cbc: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	if err := b.writeModel(lpPath); err != nil {
		return builder.StatusError, err
	}

	args := []string{lpPath}
	if b.opts.TimeLimit > 0 {
		args = append(args, "sec", strconv.Itoa(timeLimitSeconds(b.opts.TimeLimit)))
	}
	args = append(args, "solve", "solu", solPath)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	b.opts.Logger.Debug("running cbc", "binary", bin, "columns", b.Columns())
	runErr := cmd.Run()
	b.opts.Logger.Debug("cbc finished", "elapsed", time.Since(start), "stdout_bytes", stdout.Len())
	if ctx.Err() != nil {
		return builder.StatusError, fmt.Errorf("cbc: %w", ctx.Err())
	}
	if runErr != nil {
		return builder.StatusError, fmt.Errorf("cbc: %w: %s", runErr, strings.TrimSpace(stderr.String()))
	}

	f, err := os.Open(solPath)
	if err != nil {
		return builder.StatusError, fmt.Errorf("cbc: no solution file: %w", err)
	}
	defer f.Close()
	sol, err := ParseSolution(f, b.Columns())
	if err != nil {
		return builder.StatusError, err
	}
	b.status, b.values = sol.Status, sol.Values
	b.opts.Logger.Debug("cbc status", "status", sol.Status, "line", sol.Line)
	return sol.Status, nil
}

// timeLimitSeconds rounds d to whole seconds for cbc's "sec" option. cbc
// reads "sec 0" as no time at all, so any positive limit is at least 1.
func timeLimitSeconds(d time.Duration) int {
	sec := int(d.Seconds() + 0.5)
	if sec < 1 {
		return 1
	}
	return sec
}

// ValueOf implements builder.Builder.
func (b *Builder) ValueOf(h builder.Handle) (float64, error) {
	if b.status != builder.StatusOptimal {
		return 0, fmt.Errorf("cbc: no optimal solution")
	}
	if int(h) < 0 || int(h) >= len(b.values) {
		return 0, fmt.Errorf("cbc: unknown handle %d", h)
	}
	return b.values[h], nil
}

func (b *Builder) writeModel(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cbc: %w", err)
	}
	if _, err := b.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("cbc: write model: %w", err)
	}
	return f.Close()
}

// Solution is a parsed cbc solution file.
type Solution struct {
	Status builder.Status
	Line   string    // the raw status line
	Values []float64 // by handle; columns cbc omits are zero
}

// ParseSolution reads a cbc solution file: a status line such as
// "Optimal - objective value 10.00000000" followed by rows of
// "index name value reduced-cost". Infeasible rows may be prefixed "**".
func ParseSolution(r io.Reader, columns int) (*Solution, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("cbc: read solution: %w", err)
		}
		return nil, fmt.Errorf("cbc: empty solution file")
	}
	sol := &Solution{Line: strings.TrimSpace(sc.Text()), Values: make([]float64, columns)}
	sol.Status = parseStatus(sol.Line)

	for line := 2; sc.Scan(); line++ {
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "**"))
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, fmt.Errorf("cbc: solution line %d: want index name value, got %q", line, text)
		}
		name := fields[1]
		if !strings.HasPrefix(name, "x") {
			continue
		}
		h, err := strconv.Atoi(name[1:])
		if err != nil || h < 0 || h >= columns {
			return nil, fmt.Errorf("cbc: solution line %d: unknown column %q", line, name)
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cbc: solution line %d: bad value %q", line, fields[2])
		}
		sol.Values[h] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cbc: read solution: %w", err)
	}
	return sol, nil
}

func parseStatus(line string) builder.Status {
	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "optimal"):
		return builder.StatusOptimal
	case strings.HasPrefix(lower, "infeasible"), strings.HasPrefix(lower, "integer infeasible"):
		return builder.StatusInfeasible
	case strings.HasPrefix(lower, "unbounded"):
		return builder.StatusUnbounded
	}
	return builder.StatusError
}

var _ builder.Builder = (*Builder)(nil)
