package unzip_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angstwad/retro-rom-downloader/internal/services"
	"github.com/angstwad/retro-rom-downloader/internal/services/unzip"
)

type stubExecutor struct {
	binary string
	args   []string
	lines  []string
	err    error
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string, onLine func(string)) error {
	s.binary = binary
	s.args = args
	for _, line := range s.lines {
		onLine(line)
	}
	return s.err
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := unzip.New(""); err == nil {
		t.Fatal("expected an error for empty binary")
	}
}

func TestExtractBuildsCommand(t *testing.T) {
	stub := &stubExecutor{}
	client, err := unzip.New("unzip", unzip.WithExecutor(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Extract(context.Background(), "downloads/Game (USA).zip", "downloads"); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if stub.binary != "unzip" {
		t.Fatalf("binary = %q, want unzip", stub.binary)
	}
	want := []string{"-o", "downloads/Game (USA).zip", "-d", "downloads"}
	if len(stub.args) != len(want) {
		t.Fatalf("args = %v, want %v", stub.args, want)
	}
	for i := range want {
		if stub.args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, stub.args[i], want[i])
		}
	}
}

func TestExtractValidatesArguments(t *testing.T) {
	client, err := unzip.New("unzip", unzip.WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Extract(context.Background(), "", "downloads"); err == nil {
		t.Fatal("expected an error for empty archive path")
	}
	if err := client.Extract(context.Background(), "a.zip", ""); err == nil {
		t.Fatal("expected an error for empty destination")
	}
}

func TestExtractFoldsOutputTailIntoError(t *testing.T) {
	stub := &stubExecutor{
		lines: []string{"Archive: a.zip", "bad CRC", "cannot extract"},
		err:   errors.New("exit status 2"),
	}
	client, err := unzip.New("unzip", unzip.WithExecutor(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = client.Extract(context.Background(), "downloads/a.zip", "downloads")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "bad CRC") {
		t.Fatalf("expected output tail in error, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "a.zip") {
		t.Fatalf("expected archive name in error, got %q", err.Error())
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want external tool marker", err)
	}
}

func TestExtractSuccessIsQuiet(t *testing.T) {
	stub := &stubExecutor{lines: []string{"Archive: a.zip", " extracting: Game.sfc"}}
	client, err := unzip.New("unzip", unzip.WithExecutor(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Extract(context.Background(), "downloads/a.zip", "downloads"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
}
