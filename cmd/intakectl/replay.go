package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// replayReport is the yaml form of a replay.
type replayReport struct {
	ConversationID string                  `yaml:"conversation_id"`
	Role           intake.Role             `yaml:"role"`
	Profile        intake.CustomerProfile  `yaml:"profile"`
	Confidence     int                     `yaml:"confidence"`
	Escalation     intake.EscalationSignal `yaml:"escalation"`
	Messages       []replayMessage         `yaml:"messages"`
	Failures       []string                `yaml:"failures,omitempty"`
}

type replayMessage struct {
	Speaker intake.Speaker `yaml:"speaker"`
	Text    string         `yaml:"text"`
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a scripted conversation",
		Long: `Replay feeds each scripted turn through a fresh in-memory session and
prints the transcript and final profile. When the script has an expect block,
mismatches are listed and the command exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			script, err := loadScript(args[0])
			if err != nil {
				return err
			}
			report := runReplay(script)

			out := cmd.OutOrStdout()
			if opts.output == "yaml" {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				if err := enc.Close(); err != nil {
					return err
				}
			} else {
				renderTranscript(out, report.ConversationID, intakeMessages(report.Messages))
				renderProfile(out, report.Profile, report.Role, report.Escalation)
				if script.Expect != nil {
					renderCheck(out, report.Failures)
				}
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d expectation(s) failed", len(report.Failures))
			}
			return nil
		},
	}
}

func runReplay(script *Script) replayReport {
	engine := intake.NewEngine(intake.WithLogger(logging.Discard()))
	role := script.Role
	if role == "" {
		role = intake.RoleUnknown
	}
	profile, history := engine.Replay(script.ConversationID, role, script.Turns)
	signal := intake.Evaluate(profile, len(intake.UserUtterances(history)), false)

	report := replayReport{
		ConversationID: script.ConversationID,
		Role:           role,
		Profile:        profile,
		Confidence:     intake.Confidence(profile),
		Escalation:     signal,
		Failures:       script.Expect.check(profile, signal),
	}
	for _, m := range history {
		report.Messages = append(report.Messages, replayMessage{Speaker: m.Speaker, Text: m.Text})
	}
	return report
}

func intakeMessages(in []replayMessage) []intake.Message {
	out := make([]intake.Message, 0, len(in))
	for _, m := range in {
		out = append(out, intake.Message{Speaker: m.Speaker, Text: m.Text})
	}
	return out
}
