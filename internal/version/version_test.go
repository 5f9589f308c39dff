package version

import (
	"errors"
	"io"
	"testing"
)

type fakeRunner struct {
	out string
	err error
}

func (f fakeRunner) Run(cmd string, args ...string) (string, error) {
	return f.out, f.err
}

func (f fakeRunner) RunStreaming(cmd string, args []string, stdout, stderr io.Writer) error {
	return f.err
}

func TestResolveDerivesFromGit(t *testing.T) {
	got := Resolve(fakeRunner{out: "v1.4.2-3-gabc123\n"})
	if got != "v1.4.2-3-gabc123" {
		t.Fatalf("unexpected version: %q", got)
	}
}

func TestResolveFallsBackWhenGitUnavailable(t *testing.T) {
	got := Resolve(fakeRunner{err: errors.New("exec: git not found")})
	if got != "dev" {
		t.Fatalf("expected static fallback, got %q", got)
	}
}

func TestResolveFallsBackOnEmptyOutput(t *testing.T) {
	got := Resolve(fakeRunner{out: "  \n"})
	if got != "dev" {
		t.Fatalf("expected static fallback, got %q", got)
	}
}
