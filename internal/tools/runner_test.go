package tools

import (
	"strings"
	"testing"
)

func TestJoinCommandEscaping(t *testing.T) {
	got := joinCommand("echo", []string{"a b", "quote'v"})
	want := "'echo' 'a b' 'quote'\"'\"'v'"
	if got != want {
		t.Fatalf("unexpected joined command\nwant: %s\ngot:  %s", want, got)
	}
}

func TestLocalRunnerRun(t *testing.T) {
	out, err := LocalRunner{}.Run("echo", "deployed")
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if strings.TrimSpace(out) != "deployed" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSSHRunnerAddressValidation(t *testing.T) {
	r := SSHRunner{}
	if _, err := r.address(); err == nil {
		t.Fatalf("expected host validation error")
	}

	r.Host = "tarbell"
	addr, err := r.address()
	if err != nil {
		t.Fatalf("unexpected address error: %v", err)
	}
	if addr != "tarbell:22" {
		t.Fatalf("expected default ssh port, got %q", addr)
	}
}

func TestSSHRunnerClientConfigValidation(t *testing.T) {
	r := SSHRunner{Host: "tarbell"}
	if _, err := r.clientConfig(); err == nil {
		t.Fatalf("expected missing user validation error")
	}
}
