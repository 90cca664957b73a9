package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/staydesk-support/internal/config"
	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/internal/observability/metrics"
	"github.com/wolfman30/staydesk-support/internal/tickets"
	"github.com/wolfman30/staydesk-support/internal/webchat"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// IntakeDeps are the optional backends of the intake engine. Nil fields fall
// back to in-memory behaviour.
type IntakeDeps struct {
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Notifier intake.EscalationNotifier
	Metrics  *metrics.IntakeMetrics
	Logger   *logging.Logger
}

// Intake is the wired engine plus what the HTTP layer needs alongside it.
type Intake struct {
	Engine     *intake.Engine
	Handler    *intake.Handler
	WebChat    *webchat.Handler
	Tickets    tickets.Repository
	Transcript *intake.RedisTranscriptStore
	// Ping checks the ticket store; nil when tickets live in memory.
	Ping func(ctx context.Context) error
}

// BuildIntake wires the ticket gateway, transcript mirror, and notifier into
// an engine and its HTTP handler.
func BuildIntake(cfg *appconfig.Config, deps IntakeDeps) (*Intake, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	out := &Intake{}
	if deps.Pool != nil {
		repo := tickets.NewPostgresRepository(deps.Pool)
		out.Tickets = repo
		out.Ping = repo.Ping
		logger.Info("ticket store: postgres")
	} else {
		out.Tickets = tickets.NewInMemoryRepository()
		logger.Warn("ticket store: in-memory (DATABASE_URL not set)")
	}

	var roleCache *tickets.RoleCache
	if deps.Redis != nil {
		roleCache = tickets.NewRoleCache(deps.Redis, cfg.RoleCacheTTL)
		out.Transcript = intake.NewRedisTranscriptStore(deps.Redis, cfg.TranscriptTTL, cfg.TranscriptMaxMessages)
	}

	opts := []intake.Option{
		intake.WithLogger(logger),
		intake.WithGateway(tickets.NewGateway(out.Tickets, roleCache, logger), cfg.GatewayTimeout),
		intake.WithSummaryMessageCount(cfg.SummaryMessageCount),
	}
	if deps.Metrics != nil {
		opts = append(opts, intake.WithMetrics(deps.Metrics))
	}
	if out.Transcript != nil {
		opts = append(opts, intake.WithTranscriptStore(out.Transcript))
	}
	if deps.Notifier != nil {
		opts = append(opts, intake.WithNotifier(deps.Notifier))
	}
	out.Engine = intake.NewEngine(opts...)

	var reader intake.TranscriptReader
	if out.Transcript != nil {
		reader = out.Transcript
	}
	out.Handler = intake.NewHandler(out.Engine, reader, logger)
	out.WebChat = webchat.NewHandler(out.Engine, reader, logger)
	return out, nil
}
