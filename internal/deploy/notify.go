// Package deploy reports version and environment metadata for a
// deployment to the external tracking spreadsheet.
//
// The whole flow is one-shot and synchronous: gather environment
// variables, echo them, invoke the tracking update command. The update
// command's failure is not retried; it becomes the caller's exit
// status.
package deploy

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/philbudne/rss-fetcher/internal/tools"
)

// Environment variables consumed by the notifier. The API key gates
// the whole run; the rest is metadata recorded in the tracking base.
const (
	EnvAPIKey   = "AIRTABLE_API_KEY"
	EnvBaseID   = "AIRTABLE_BASE_ID"
	EnvCodebase = "DEPLOY_CODEBASE"
	EnvEnv      = "DEPLOY_ENV"
	EnvHardware = "DEPLOY_HARDWARE"
	EnvName     = "DEPLOY_NAME"
)

// DefaultCommand is the external deployment-tracking update tool. It
// reads the API key and base id from its own environment; the other
// values travel as flags.
const DefaultCommand = "airtable-deploy-update"

// Record is one deployment's tracking metadata.
type Record struct {
	APIKey   string
	BaseID   string
	Codebase string
	Env      string
	Hardware string
	Name     string
	Version  string
}

// FromEnv gathers a Record from the process environment. Version is
// filled in by the caller (see version.Resolve).
func FromEnv() Record {
	return LookupEnv(os.Getenv)
}

// LookupEnv gathers a Record through an explicit getenv, for tests.
func LookupEnv(getenv func(string) string) Record {
	return Record{
		APIKey:   getenv(EnvAPIKey),
		BaseID:   getenv(EnvBaseID),
		Codebase: getenv(EnvCodebase),
		Env:      getenv(EnvEnv),
		Hardware: getenv(EnvHardware),
		Name:     getenv(EnvName),
	}
}

// Enabled reports whether tracking is configured. An empty or unset
// API key disables the run entirely: no output, no external call.
func (r Record) Enabled() bool {
	return r.APIKey != ""
}

// Lines renders the record's metadata for the deploy log, one value
// per line in fixed order. Values are echoed unmodified.
func (r Record) Lines() []string {
	return []string{
		"base: " + r.BaseID,
		"codebase: " + r.Codebase,
		"env: " + r.Env,
		"hardware: " + r.Hardware,
		"name: " + r.Name,
		"version: " + r.Version,
	}
}

// Args returns the flag arguments for the tracking update command:
// exactly the five named values, unmodified.
func (r Record) Args() []string {
	return []string{
		"--codebase", r.Codebase,
		"--env", r.Env,
		"--hardware", r.Hardware,
		"--name", r.Name,
		"--version", r.Version,
	}
}

// Notifier invokes the deployment-tracking update command.
type Notifier struct {
	Runner  tools.Runner
	Command string
	Out     io.Writer
}

// Notify echoes the record and runs the update command. When tracking
// is not configured it does nothing at all.
func (n *Notifier) Notify(rec Record) error {
	if !rec.Enabled() {
		return nil
	}

	out := n.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, strings.Join(rec.Lines(), "\n"))

	command := n.Command
	if command == "" {
		command = DefaultCommand
	}
	runner := n.Runner
	if runner == nil {
		runner = tools.LocalRunner{}
	}

	if output, err := runner.Run(command, rec.Args()...); err != nil {
		return fmt.Errorf("deploy: tracking update failed: %w (output: %s)",
			err, strings.TrimSpace(output))
	}
	return nil
}
