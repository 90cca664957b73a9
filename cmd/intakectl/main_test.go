package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wolfman30/staydesk-support/internal/intake"
)

const priyaScript = `conversation_id: guest-priya
role: customer
turns:
  - "Hi, I'm Priya, my email is priya@test.com, urgent refund issue"
expect:
  name: Priya
  email: priya@test.com
  issue_type: payment
  confidence: 65
  escalate: true
  reason: highUrgency
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayTextPasses(t *testing.T) {
	out, err := execute(t, "replay", writeScript(t, priyaScript))
	require.NoError(t, err)
	assert.Contains(t, out, "Conversation guest-priya")
	assert.Contains(t, out, "Nice to meet you, Priya!")
	assert.Contains(t, out, "priya@test.com")
	assert.Contains(t, out, "PASS")
}

func TestReplayYAMLReport(t *testing.T) {
	out, err := execute(t, "replay", "-o", "yaml", writeScript(t, priyaScript))
	require.NoError(t, err)

	var report replayReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, "guest-priya", report.ConversationID)
	assert.Equal(t, intake.RoleCustomer, report.Role)
	assert.Equal(t, 65, report.Confidence)
	assert.Equal(t, intake.ReasonHighUrgency, report.Escalation.Reason)
	require.Len(t, report.Messages, 2)
	assert.Equal(t, intake.SpeakerUser, report.Messages[0].Speaker)
	assert.Empty(t, report.Failures)
}

func TestReplayExpectationFailure(t *testing.T) {
	script := `conversation_id: T-5
turns:
  - "hello there"
expect:
  name: Rahul
  escalate: true
`
	out, err := execute(t, "replay", writeScript(t, script))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 expectation(s) failed")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, `name: want "Rahul", got ""`)
}

func TestReplayRejectsBadScripts(t *testing.T) {
	tests := map[string]string{
		"no turns":      "conversation_id: T-1\nturns: []\n",
		"bad role":      "role: admin\nturns: [hi]\n",
		"unknown field": "turnz: [hi]\n",
		"bad id":        "conversation_id: \"bad id\"\nturns: [hi]\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, "replay", writeScript(t, body))
			assert.Error(t, err)
		})
	}

	_, err := execute(t, "replay", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseScriptDefaultsID(t *testing.T) {
	s, err := parseScript([]byte("turns: [hi]\n"))
	require.NoError(t, err)
	assert.Equal(t, "replay-1", s.ConversationID)
	assert.Nil(t, s.Expect.check(intake.CustomerProfile{}, intake.EscalationSignal{}))
}

func TestExtractYAML(t *testing.T) {
	out, err := execute(t, "extract", "-o", "yaml", "I'm Rahul Sharma, booking BK123456")
	require.NoError(t, err)

	var p intake.CustomerProfile
	require.NoError(t, yaml.Unmarshal([]byte(out), &p))
	assert.Equal(t, "Rahul Sharma", p.Name)
	assert.Equal(t, "BK123456", p.BookingReference)
}

func TestExtractTextNothingFound(t *testing.T) {
	out, err := execute(t, "extract", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing extracted")
}

func TestUnsupportedOutput(t *testing.T) {
	_, err := execute(t, "extract", "-o", "xml", "hello")
	assert.ErrorContains(t, err, "unsupported output")
}
