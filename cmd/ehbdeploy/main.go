// Command ehbdeploy builds, ships and runs ehb-service on the hosts named in
// the .fabhosts settings file.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/artpar/ehbdeploy/internal/core/hosts"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess     = 0
	ExitConfigError = 1
	ExitUsageError  = 2
	ExitRemoteError = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintln(stderr, ErrorStyle.Render("Error:")+" "+err.Error())
	return exitCode(err)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var usageErr *UsageError
	switch {
	case err == nil:
		return ExitSuccess
	case hosts.IsConfigurationError(err):
		return ExitConfigError
	case errors.As(err, &usageErr):
		return ExitUsageError
	default:
		return ExitRemoteError
	}
}

// UsageError reports invalid command line input.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}
