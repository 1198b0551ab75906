package engine

import (
	"context"
	"fmt"
	"strings"

	"mantra/internal/filters"
	"mantra/internal/logging"
	"mantra/internal/services"
)

// Run executes graph inside the staging directory. Runs on one engine are
// serialized. Staged inputs are checked before ffmpeg is spawned; a missing
// input or a non-zero exit is reported as an EngineExecutionError carrying
// ffmpeg's own output as diagnostics. ctx bounds the run: when it ends,
// ffmpeg is killed and the error wraps ctx.Err().
func (e *Engine) Run(ctx context.Context, graph filters.Graph) error {
	if err := ValidateName(graph.Output); err != nil {
		return err
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	command, dir, err := e.ready()
	if err != nil {
		return fmt.Errorf("run %s: %w", graph.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return &services.EngineExecutionError{Op: graph.Name, Err: err}
	}

	for _, name := range graph.StagedInputs() {
		if !e.Exists(name) {
			return &services.EngineExecutionError{
				Op:          graph.Name,
				Diagnostics: fmt.Sprintf("%s: No such file or directory", name),
			}
		}
	}

	args := graph.Args()
	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("engine run", logging.String("graph", graph.Name), logging.String("args", strings.Join(args, " ")))

	cmd := commandContext(ctx, command, args...) //nolint:gosec
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &services.EngineExecutionError{
			Op:          graph.Name,
			Diagnostics: strings.TrimSpace(string(output)),
			Err:         err,
		}
	}
	return nil
}
