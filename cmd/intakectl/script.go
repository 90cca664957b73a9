package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/staydesk-support/internal/intake"
)

// Script is a scripted conversation with optional expectations.
type Script struct {
	ConversationID string       `yaml:"conversation_id"`
	Role           intake.Role  `yaml:"role"`
	Turns          []string     `yaml:"turns"`
	Expect         *Expectation `yaml:"expect,omitempty"`
}

// Expectation pins the outcome of a replay. Empty fields are not checked.
type Expectation struct {
	Name             string `yaml:"name,omitempty"`
	Email            string `yaml:"email,omitempty"`
	Phone            string `yaml:"phone,omitempty"`
	IssueType        string `yaml:"issue_type,omitempty"`
	BookingReference string `yaml:"booking_reference,omitempty"`
	Urgency          string `yaml:"urgency,omitempty"`
	Confidence       *int   `yaml:"confidence,omitempty"`
	Escalate         *bool  `yaml:"escalate,omitempty"`
	Reason           string `yaml:"reason,omitempty"`
}

func loadScript(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return parseScript(raw)
}

func parseScript(raw []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if strings.TrimSpace(s.ConversationID) == "" {
		s.ConversationID = "replay-1"
	}
	if err := intake.ValidateConversationID(s.ConversationID); err != nil {
		return nil, err
	}
	switch s.Role {
	case "", intake.RoleUnknown, intake.RoleCustomer, intake.RolePropertyOwner:
	default:
		return nil, fmt.Errorf("parse script: unknown role %q", s.Role)
	}
	if len(s.Turns) == 0 {
		return nil, errors.New("parse script: no turns")
	}
	return &s, nil
}

// check compares a replay outcome against the expectation and lists every
// mismatch.
func (e *Expectation) check(p intake.CustomerProfile, signal intake.EscalationSignal) []string {
	if e == nil {
		return nil
	}
	var failures []string
	field := func(name, want, got string) {
		if want != "" && want != got {
			failures = append(failures, fmt.Sprintf("%s: want %q, got %q", name, want, got))
		}
	}
	field("name", e.Name, p.Name)
	field("email", e.Email, p.Email)
	field("phone", e.Phone, p.Phone)
	field("issue_type", e.IssueType, string(p.IssueType))
	field("booking_reference", e.BookingReference, p.BookingReference)
	field("urgency", e.Urgency, string(p.Urgency))
	field("reason", e.Reason, string(signal.Reason))
	if e.Confidence != nil && *e.Confidence != intake.Confidence(p) {
		failures = append(failures, fmt.Sprintf("confidence: want %d, got %d", *e.Confidence, intake.Confidence(p)))
	}
	if e.Escalate != nil && *e.Escalate != signal.ShouldEscalate {
		failures = append(failures, fmt.Sprintf("escalate: want %t, got %t", *e.Escalate, signal.ShouldEscalate))
	}
	return failures
}
