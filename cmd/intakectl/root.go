package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	output string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "intakectl",
		Short: "Inspect the support intake engine offline",
		Long: `intakectl drives the intake engine without a ticket store, NATS or Redis.

Quick Start:
  intakectl replay script.yaml          # replay a scripted conversation
  intakectl extract "I'm Priya, priya@test.com"   # show extracted fields`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text or yaml")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(newReplayCmd(opts), newExtractCmd(opts))
	return cmd
}

func (o *rootOptions) validate() error {
	switch o.output {
	case "text", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output %q (want text or yaml)", o.output)
	}
}
