// Package sqlplus runs scripts through the Oracle SQL*Plus command-line client.
package sqlplus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/regshell/internal/config"
)

// clientArgs start SQL*Plus silently without logging in. Credentials are sent
// on stdin with CONNECT so they never show up in the process table.
var clientArgs = []string{"-S", "-L", "/nolog"}

// Config holds executor configuration
type Config struct {
	Binary   string
	User     string
	Password string
	Alias    string
	Package  string

	// Timeout bounds a single client run. Zero means no timeout.
	Timeout time.Duration
	// MaxConcurrent limits simultaneous client processes. Zero means unlimited.
	MaxConcurrent int
}

// FromDatabaseConfig converts the [database] config section.
func FromDatabaseConfig(db config.DatabaseConfig) Config {
	return Config{
		Binary:        db.Binary,
		User:          db.User,
		Password:      db.Password,
		Alias:         db.Alias,
		Package:       db.Package,
		Timeout:       db.ProcedureTimeout.Duration,
		MaxConcurrent: db.MaxConcurrent,
	}
}

// Runner starts a process, feeds it stdin and collects its output. A non-zero
// exit status is not an error; only failing to run the process is.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, stdin string) (stdout, stderr []byte, err error)
}

// Result is the filtered output of one client run.
type Result struct {
	Name     string
	Lines    []string
	Output   string
	Duration time.Duration
	// Err is the database error found in the output, if any.
	Err error
}

// OK reports whether the output carried no database error.
func (r *Result) OK() bool {
	return r != nil && r.Err == nil
}

// Executor runs scripts through the SQL*Plus client.
type Executor struct {
	cfg    Config
	mu     sync.RWMutex
	runner Runner
	sem    chan struct{}
}

// Option configures an Executor
type Option func(*Executor)

// WithRunner replaces the process runner (used by tests).
func WithRunner(r Runner) Option {
	return func(e *Executor) {
		e.runner = r
	}
}

// New creates an executor. The concurrency limit is fixed at creation;
// UpdateConfig does not resize it.
func New(cfg Config, opts ...Option) *Executor {
	e := &Executor{
		cfg:    cfg,
		runner: execRunner{},
	}
	if cfg.MaxConcurrent > 0 {
		e.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpdateConfig swaps credentials and settings for subsequent runs.
func (e *Executor) UpdateConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	log.Info().Str("user", cfg.User).Str("alias", cfg.Alias).Msg("Database client configuration updated")
}

func (e *Executor) config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Package returns the PL/SQL package procedures are called in.
func (e *Executor) Package() string {
	return e.config().Package
}

// Run executes script and returns its filtered output. When the client ran,
// the result is always returned; the error is then the database error found
// in the output, if any. When the client could not run, the result is nil and
// the error wraps ErrConnection.
func (e *Executor) Run(ctx context.Context, name string, script *Script) (*Result, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting to run %s: %w", ErrConnection, name, err)
	}
	defer e.release()

	cfg := e.config()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	input := connectLine(cfg) + script.String()

	log.Trace().Str("name", name).Str("script", script.String()).Msg("Running SQL*Plus script")

	start := time.Now()
	stdout, stderr, err := e.runner.Run(ctx, cfg.Binary, clientArgs, input)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Error().Err(ctxErr).Str("name", name).Dur("duration", elapsed).Msg("SQL*Plus run cancelled")
			return nil, fmt.Errorf("%w: %s did not finish: %w", ErrConnection, name, ctxErr)
		}
		log.Error().Err(err).Str("binary", cfg.Binary).Str("name", name).Msg("Failed to run SQL*Plus")
		return nil, fmt.Errorf("%w: failed to run %s: %w", ErrConnection, cfg.Binary, err)
	}

	lines := filterOutput(stdout, stderr)
	res := &Result{
		Name:     name,
		Lines:    lines,
		Output:   strings.Join(lines, "\n"),
		Duration: elapsed,
		Err:      classify(name, lines),
	}

	log.Debug().
		Str("name", name).
		Int("lines", len(lines)).
		Dur("duration", elapsed).
		Str("code", Code(res.Err)).
		Msg("SQL*Plus run finished")

	return res, res.Err
}

// Call runs procedure in the configured package with args bound in order.
func (e *Executor) Call(ctx context.Context, procedure string, args ...string) (*Result, error) {
	script, err := Procedure(e.Package(), procedure, args...)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, procedure, script)
}

// Ping checks that the client starts and can log in.
func (e *Executor) Ping(ctx context.Context) error {
	_, err := e.Run(ctx, "ping", NewScript().Statement("SELECT 1 FROM dual;"))
	return err
}

func (e *Executor) acquire(ctx context.Context) error {
	if e.sem == nil {
		return nil
	}
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) release() {
	if e.sem != nil {
		<-e.sem
	}
}

func connectLine(cfg Config) string {
	return fmt.Sprintf("CONNECT %s/\"%s\"@%s\n", cfg.User, cfg.Password, cfg.Alias)
}

// filterOutput drops blank lines, connection banners and prompts. Stderr
// lines follow stdout lines.
func filterOutput(stdout, stderr []byte) []string {
	var lines []string
	for _, stream := range [][]byte{stdout, stderr} {
		for _, line := range strings.Split(string(stream), "\n") {
			line = strings.TrimRight(line, " \t\r")
			text := strings.TrimSpace(line)
			if text == "" || strings.HasPrefix(text, "Connected") || strings.HasPrefix(text, "SQL>") {
				continue
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// execRunner runs the real client binary.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, binary string, args []string, stdin string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	// Own process group so a terminal SIGINT reaches us first and a timeout
	// kills the whole client.
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		log.Debug().Int("exit_code", exitErr.ExitCode()).Str("binary", binary).Msg("SQL*Plus exited with non-zero status")
		err = nil
	}
	return stdout.Bytes(), stderr.Bytes(), err
}
