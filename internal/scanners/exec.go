package scanners

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// execResult carries everything the adapters need to classify a run.
type execResult struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// run executes a scanner binary and captures both pipes concurrently so a
// chatty tool cannot deadlock on a full buffer. Context cancellation kills
// the subprocess; WaitDelay bounds the cleanup.
func run(ctx context.Context, binary string, args ...string) (*execResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.WaitDelay = 5 * time.Second

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(&stdoutBuf, stdoutPipe)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(&stderrBuf, stderrPipe)
		done <- struct{}{}
	}()
	<-done
	<-done

	err = cmd.Wait()

	res := &execResult{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("exit code %d: %w", res.ExitCode, err)
	}
	return res, nil
}
