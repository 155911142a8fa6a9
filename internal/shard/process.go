package shard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// ProcessLauncher runs each shard as a child process of the current binary
// through its hidden shard subcommand. Seeds are piped on stdin.
type ProcessLauncher struct {
	// Executable defaults to the running binary.
	Executable string
	// Args precede the shard arguments, e.g. the persistent --config flag.
	Args []string
	// Env is appended to the parent's environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// Launch starts the shard process and waits for it to exit.
func (l *ProcessLauncher) Launch(ctx context.Context, job Job) error {
	exe := l.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		exe = self
	}

	var stdin bytes.Buffer
	if err := WriteSeeds(&stdin, job.Seeds); err != nil {
		return err
	}

	args := append(append([]string(nil), l.Args...), ShardArgs(job)...)
	cmd := exec.CommandContext(ctx, exe, args...) // #nosec G204 -- re-executes our own binary
	cmd.Stdin = &stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	cmd.Env = append(os.Environ(), l.Env...)

	if l.Logger != nil {
		l.Logger.Debug("starting shard process",
			zap.Int("shard", job.Index),
			zap.String("executable", exe),
			zap.Strings("args", args),
		)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shard %d process: %w", job.Index, err)
	}
	return nil
}

// ShardArgs are the subcommand arguments that reproduce job in a child.
func ShardArgs(job Job) []string {
	return []string{
		"shard",
		"--index", strconv.Itoa(job.Index),
		"--output-dir", job.OutputDir,
		"--run-id", job.RunID,
	}
}
