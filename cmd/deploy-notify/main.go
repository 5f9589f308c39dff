// deploy-notify reports a deployment's version and environment
// metadata to the external tracking spreadsheet. Run by the deploy
// scripting after a push; a missing tracking API key makes it a
// silent no-op.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/philbudne/rss-fetcher/internal/deploy"
	"github.com/philbudne/rss-fetcher/internal/tools"
	"github.com/philbudne/rss-fetcher/internal/version"
)

func main() {
	command := flag.String("command", deploy.DefaultCommand,
		"deployment-tracking update command")
	sshHost := flag.String("ssh-host", "",
		"run the update command on this host over SSH instead of locally")
	sshUser := flag.String("ssh-user", "", "SSH user for --ssh-host")
	sshKey := flag.String("ssh-key", "", "SSH private key path for --ssh-host")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Summary())
		return
	}

	var runner tools.Runner = tools.LocalRunner{}
	if *sshHost != "" {
		runner = tools.SSHRunner{
			Host:    *sshHost,
			User:    *sshUser,
			KeyPath: *sshKey,
			Timeout: 15 * time.Second,
		}
	}

	rec := deploy.FromEnv()
	rec.Version = version.Resolve(tools.LocalRunner{})

	notifier := &deploy.Notifier{Runner: runner, Command: *command}
	if err := notifier.Notify(rec); err != nil {
		fmt.Fprintf(os.Stderr, "deploy-notify: %v\n", err)
		os.Exit(1)
	}
}
