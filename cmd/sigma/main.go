package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/roach88/sigma/internal/cli"
)

// main is the entrypoint for the sigma command.
func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
}

// run executes the command tree and maps the outcome to an exit code.
// Commands render their own diagnostics on stdout; stderr gets one summary
// line so scripts piping JSON still see why the process failed.
func run(stdout, stderr io.Writer, args []string) int {
	root := cli.NewRootCommand()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return cli.ExitSuccess
	}
	fmt.Fprintln(stderr, "sigma:", err)
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		// flag and argument errors from cobra
		return cli.ExitCommandError
	}
	return exitErr.Code
}
