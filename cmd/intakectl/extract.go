package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wolfman30/staydesk-support/internal/intake"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   `extract "<text>"`,
		Short: "Show the fields the extractor finds in one utterance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			text := strings.Join(args, " ")
			partial := intake.Extract(text)
			profile := intake.CustomerProfile(partial)

			out := cmd.OutOrStdout()
			if opts.output == "text" {
				if partial.IsEmpty() {
					fmt.Fprintln(out, metaStyle.Render("nothing extracted"))
					return nil
				}
				renderProfile(out, profile, intake.RoleUnknown, intake.EscalationSignal{})
				return nil
			}
			data, err := yaml.Marshal(profile)
			if err != nil {
				return fmt.Errorf("encode profile: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}
