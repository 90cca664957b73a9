package bootstrap

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/staydesk-support/internal/config"
	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/internal/notify"
	"github.com/wolfman30/staydesk-support/internal/tickets"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		GatewayTimeout:        time.Second,
		SummaryMessageCount:   10,
		RoleCacheTTL:          time.Hour,
		TranscriptTTL:         time.Hour,
		TranscriptMaxMessages: 50,
	}
}

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
	if client := BuildRedisClient(context.Background(), nil, logging.Discard(), false); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	_ = client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := BuildPostgresPool(context.Background(), "  ", logging.Discard()); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestBuildEscalationPublisherDisabled(t *testing.T) {
	pub, err := BuildEscalationPublisher(&appconfig.Config{}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub != nil {
		t.Fatalf("expected nil publisher without NATS_URL")
	}
}

func TestBuildIntakeRequiresConfig(t *testing.T) {
	if _, err := BuildIntake(nil, IntakeDeps{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildIntakeInMemory(t *testing.T) {
	in, err := BuildIntake(testConfig(), IntakeDeps{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := in.Tickets.(*tickets.InMemoryRepository); !ok {
		t.Fatalf("expected in-memory ticket repository, got %T", in.Tickets)
	}
	if in.Transcript != nil || in.Ping != nil {
		t.Fatalf("expected no transcript or ping without backends")
	}
	res, err := in.Engine.HandleTurn(context.Background(), "T-1", "Hi, I'm Priya")
	if err != nil {
		t.Fatalf("handle turn: %v", err)
	}
	if res.Profile.Name != "Priya" {
		t.Fatalf("expected Priya, got %q", res.Profile.Name)
	}
}

func TestBuildIntakeMirrorsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), false)
	t.Cleanup(func() { _ = client.Close() })

	in, err := BuildIntake(testConfig(), IntakeDeps{Redis: client, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Transcript == nil {
		t.Fatalf("expected transcript store with redis")
	}
	if _, err := in.Engine.HandleTurn(context.Background(), "T-2", "hello"); err != nil {
		t.Fatalf("handle turn: %v", err)
	}
	msgs, err := in.Transcript.List(context.Background(), "T-2", 0)
	if err != nil {
		t.Fatalf("list transcript: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Speaker != intake.SpeakerUser {
		t.Fatalf("expected user and system messages, got %+v", msgs)
	}
}

func TestRunSweeperEvictsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSweeper(ctx, 5*time.Millisecond, time.Minute, logging.Discard(), EvicterFunc(func(idle time.Duration) int {
			if idle != time.Minute {
				t.Errorf("unexpected idle %s", idle)
			}
			calls.Add(1)
			return 1
		}))
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweeper never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop on cancel")
	}
}

func TestRunSweeperDisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		RunSweeper(context.Background(), 0, time.Minute, logging.Discard())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected immediate return when disabled")
	}
}

func TestBuildEmailSenderFallsBackToLog(t *testing.T) {
	for _, provider := range []string{"", "sendgrid", "carrier-pigeon"} {
		sender, err := BuildEmailSender(context.Background(), &appconfig.Config{EmailProvider: provider}, logging.Discard())
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", provider, err)
		}
		if _, ok := sender.(*notify.LogSender); !ok {
			t.Fatalf("%q: expected log sender, got %T", provider, sender)
		}
	}

	sender, err := BuildEmailSender(context.Background(), &appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "key"}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(*notify.SendGridSender); !ok {
		t.Fatalf("expected sendgrid sender, got %T", sender)
	}
}

func TestBuildEmailSenderSES(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		EmailProvider:       "ses",
		AWSRegion:           "us-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}
	sender, err := BuildEmailSender(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(*notify.SESSender); !ok {
		t.Fatalf("expected SES sender, got %T", sender)
	}
}

type nopNotifier struct{}

func (nopNotifier) NotifyEscalation(context.Context, intake.EscalationNotice) error { return nil }

func TestBuildEscalationNotifier(t *testing.T) {
	ctx := context.Background()

	n, err := BuildEscalationNotifier(ctx, &appconfig.Config{}, nil, logging.Discard())
	if err != nil || n != nil {
		t.Fatalf("expected no notifier, got %v %v", n, err)
	}

	n, err = BuildEscalationNotifier(ctx, &appconfig.Config{}, nopNotifier{}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(nopNotifier); !ok {
		t.Fatalf("expected publisher alone, got %T", n)
	}

	n, err = BuildEscalationNotifier(ctx, &appconfig.Config{EscalationEmailTo: "desk@example.com"}, nopNotifier{}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fan, ok := n.(notify.Fanout)
	if !ok || len(fan) != 2 {
		t.Fatalf("expected two-way fanout, got %T", n)
	}
}
