package deploy

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

type recordingRunner struct {
	cmd  string
	args []string
	err  error
	runs int
}

func (r *recordingRunner) Run(cmd string, args ...string) (string, error) {
	r.runs++
	r.cmd = cmd
	r.args = args
	return "", r.err
}

func (r *recordingRunner) RunStreaming(cmd string, args []string, stdout, stderr io.Writer) error {
	return r.err
}

func sampleRecord() Record {
	rec := LookupEnv(func(name string) string {
		return map[string]string{
			EnvAPIKey:   "keyXXXX",
			EnvBaseID:   "appYYYY",
			EnvCodebase: "rss-fetcher",
			EnvEnv:      "staging",
			EnvHardware: "tarbell",
			EnvName:     "rss-fetcher-staging",
		}[name]
	})
	rec.Version = "v1.4.2"
	return rec
}

func TestNotifyDisabledWithoutAPIKey(t *testing.T) {
	runner := &recordingRunner{}
	var out bytes.Buffer
	n := &Notifier{Runner: runner, Out: &out}

	rec := sampleRecord()
	rec.APIKey = ""

	if err := n.Notify(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
	if runner.runs != 0 {
		t.Fatalf("expected no external call, got %d", runner.runs)
	}
}

func TestNotifyEchoesValuesInFixedOrder(t *testing.T) {
	runner := &recordingRunner{}
	var out bytes.Buffer
	n := &Notifier{Runner: runner, Out: &out}

	if err := n.Notify(sampleRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"base: appYYYY",
		"codebase: rss-fetcher",
		"env: staging",
		"hardware: tarbell",
		"name: rss-fetcher-staging",
		"version: v1.4.2",
	}
	got := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected echo\nwant: %q\ngot:  %q", want, got)
	}
}

func TestNotifyPassesFiveFlagValuesUnmodified(t *testing.T) {
	runner := &recordingRunner{}
	n := &Notifier{Runner: runner, Out: io.Discard}

	if err := n.Notify(sampleRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if runner.cmd != DefaultCommand {
		t.Fatalf("unexpected command: %q", runner.cmd)
	}
	want := []string{
		"--codebase", "rss-fetcher",
		"--env", "staging",
		"--hardware", "tarbell",
		"--name", "rss-fetcher-staging",
		"--version", "v1.4.2",
	}
	if !reflect.DeepEqual(runner.args, want) {
		t.Fatalf("unexpected args\nwant: %q\ngot:  %q", want, runner.args)
	}
	if runner.runs != 1 {
		t.Fatalf("expected exactly one call, got %d", runner.runs)
	}
}

func TestNotifyEmptyMetadataEchoesAsIs(t *testing.T) {
	runner := &recordingRunner{}
	var out bytes.Buffer
	n := &Notifier{Runner: runner, Out: &out}

	rec := Record{APIKey: "keyXXXX"}
	if err := n.Notify(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.runs != 1 {
		t.Fatalf("expected external call despite empty metadata, got %d", runner.runs)
	}
	if !strings.Contains(out.String(), "codebase: \n") {
		t.Fatalf("expected empty value echoed as-is, got %q", out.String())
	}
}

func TestNotifyUpdateFailurePropagates(t *testing.T) {
	runner := &recordingRunner{err: errors.New("exit status 1")}
	n := &Notifier{Runner: runner, Out: io.Discard}

	if err := n.Notify(sampleRecord()); err == nil {
		t.Fatalf("expected update failure to propagate")
	}
	if runner.runs != 1 {
		t.Fatalf("expected exactly one attempt, got %d", runner.runs)
	}
}
