// Package command runs external binaries with line-oriented output capture.
package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// New returns the Executor backed by os/exec.
func New() Executor {
	return execExecutor{}
}

type execExecutor struct{}

// Run starts the binary and streams stdout and stderr line by line to
// onLine. When onLine is nil, output is forwarded to this process's stderr
// so interactive tools keep their console reporting. A non-zero exit
// surfaces as an error after both streams drain.
func (execExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	forward := func(line string) {
		if onLine != nil {
			onLine(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	var (
		wg      sync.WaitGroup
		once    sync.Once
		scanErr error
	)
	drain := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go drain(stdout)
	go drain(stderr)
	wg.Wait()

	if scanErr != nil {
		// A stalled scanner leaves the child blocked on a full pipe.
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan %s output: %w", binary, scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", binary, err)
	}
	return nil
}
