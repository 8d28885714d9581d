package main

import (
	"fmt"
	"io"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &cliOptions{LogWriter: errOut}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Lending, reservations and recommendations for a small library",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(opts, in, out)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "config file (default: ./library.yaml when present)")
	pf.StringVar(&opts.SeedPath, "seed", "", "YAML seed catalog to load at startup")
	pf.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&opts.LogFormat, "log-format", "", "json, text or pretty (default: pretty on a terminal)")
	pf.StringVar(&opts.Strategy, "strategy", "", "recommendation strategy: frequency or genre")

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Interactive library console (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runShell(opts, in, out)
			},
		},
		&cobra.Command{
			Use:   "demo",
			Short: "Walk through a scripted borrow, reserve and recommend session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withManager(opts, func(h *managerHandle, _ do.Injector) error {
					return runDemo(h.LibraryManager, out)
				})
			},
		},
		newSearchCmd(opts, out),
	)
	return root
}

// withManager builds a container for one command run and shuts it down
// afterwards.
func withManager(opts *cliOptions, fn func(h *managerHandle, i do.Injector) error) error {
	injector := newContainer(opts)
	defer injector.Shutdown()

	h, err := do.Invoke[*managerHandle](injector)
	if err != nil {
		return err
	}
	return fn(h, injector)
}
