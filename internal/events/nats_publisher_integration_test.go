//go:build integration

package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wolfman30/staydesk-support/pkg/logging"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PublishEscalation(t *testing.T) {
	natsURL := skipWithoutNATS(t)

	sub, err := nats.Connect(natsURL)
	if err != nil {
		t.Fatalf("failed to connect subscriber: %v", err)
	}
	defer sub.Close()

	received := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("staydesk.test.escalation.>", received); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	p, err := NewNATSPublisher(natsURL, os.Getenv("NATS_TOKEN"), "staydesk.test.escalation", logging.Default())
	if err != nil {
		t.Fatalf("failed to connect publisher: %v", err)
	}
	defer p.Close()

	if err := p.NotifyEscalation(context.Background(), testNotice()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-received:
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.EventType != "intake.escalation.raised.v1" {
			t.Errorf("unexpected event type %q", env.EventType)
		}
		if msg.Subject != "staydesk.test.escalation.high" {
			t.Errorf("unexpected subject %q", msg.Subject)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for escalation event")
	}
}
