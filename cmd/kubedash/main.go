// Package main is the entry point for the kubedash CLI.
//
// kubedash stores bearer-token credentials for Kubernetes control planes,
// provisioning them over SSH when needed, and restarts workloads while
// watching them converge. It runs as a REST service (kubedash serve) or as
// one-shot commands against the same credential store.
//
// For detailed usage information, run:
//
//	kubedash --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/kubedash/cmd/kubedash/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
