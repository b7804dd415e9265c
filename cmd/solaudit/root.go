package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-sol/internal/application"
	"github.com/bryanwahyu/automaton-sol/internal/logging"
)

type cliOptions struct {
	verbose bool
	clock   application.Clock
	logger  *zap.Logger
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "solaudit",
		Short:         "solaudit - heuristic Solidity contract auditor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.logger == nil {
				opts.logger = logging.CLI(opts.verbose)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newAuditCmd(opts), newRulesCmd(), newWatchCmd(opts))
	return root
}
