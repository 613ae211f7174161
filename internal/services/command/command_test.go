package command_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/angstwad/retro-rom-downloader/internal/services/command"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable on windows")
	}
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunCapturesBothStreams(t *testing.T) {
	script := writeScript(t, "echo out-line\necho err-line 1>&2")

	var lines []string
	exec := command.New()
	err := exec.Run(context.Background(), script, nil, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	seen := map[string]bool{}
	for _, line := range lines {
		seen[line] = true
	}
	if !seen["out-line"] || !seen["err-line"] {
		t.Fatalf("expected both streams captured, got %v", lines)
	}
}

func TestRunPassesArguments(t *testing.T) {
	script := writeScript(t, `echo "$1:$2"`)

	var lines []string
	exec := command.New()
	err := exec.Run(context.Background(), script, []string{"alpha", "beta"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) != 1 || lines[0] != "alpha:beta" {
		t.Fatalf("expected argument echo, got %v", lines)
	}
}

func TestRunReportsNonZeroExit(t *testing.T) {
	script := writeScript(t, "exit 3")

	exec := command.New()
	if err := exec.Run(context.Background(), script, nil, func(string) {}); err == nil {
		t.Fatal("expected an error for non-zero exit")
	}
}

func TestRunMissingBinary(t *testing.T) {
	exec := command.New()
	missing := filepath.Join(t.TempDir(), "no-such-binary")
	if err := exec.Run(context.Background(), missing, nil, func(string) {}); err == nil {
		t.Fatal("expected an error for a missing binary")
	}
}

func TestRunHonorsContextCancel(t *testing.T) {
	script := writeScript(t, "sleep 10")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := command.New()
	if err := exec.Run(ctx, script, nil, func(string) {}); err == nil {
		t.Fatal("expected an error for cancelled context")
	}
}
