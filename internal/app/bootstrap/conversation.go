package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	appconfig "github.com/reparoja/reparoja-ai-platform/internal/config"
	"github.com/reparoja/reparoja-ai-platform/internal/conversation"
	"github.com/reparoja/reparoja-ai-platform/internal/notify"
	"github.com/reparoja/reparoja-ai-platform/internal/observability/metrics"
	"github.com/reparoja/reparoja-ai-platform/internal/orders"
	"github.com/reparoja/reparoja-ai-platform/internal/policies"
	"github.com/reparoja/reparoja-ai-platform/internal/schedule"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

// modelPinned forces one model ID regardless of what the caller requested.
// Needed when Bedrock is the fallback behind Gemini: the per-request model ID
// belongs to the primary provider.
type modelPinned struct {
	inner conversation.LLMClient
	model string
}

func (c modelPinned) Complete(ctx context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	req.Model = c.model
	return c.inner.Complete(ctx, req)
}

// BuildLLMClient assembles the configured LLM stack and the model ID requests
// should carry. A nil client is valid: the engine then runs on the
// deterministic extractors alone.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var gemini conversation.LLMClient
	if cfg.GeminiAPIKey != "" && cfg.LLMProvider != "bedrock" {
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		gemini = client
	}

	var bedrock conversation.LLMClient
	if cfg.BedrockModelID != "" && cfg.LLMProvider != "gemini" {
		awsCfg, err := BuildAWSConfig(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		bedrock = modelPinned{
			inner: conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)),
			model: cfg.BedrockModelID,
		}
	}

	switch {
	case gemini != nil && bedrock != nil:
		logger.Info("llm configured", "primary", "gemini", "fallback", "bedrock")
		return conversation.NewFallbackLLMClient(gemini, bedrock, logger.Logger), cfg.GeminiModel, nil
	case gemini != nil:
		logger.Info("llm configured", "provider", "gemini")
		return gemini, cfg.GeminiModel, nil
	case bedrock != nil:
		logger.Info("llm configured", "provider", "bedrock", "model", cfg.BedrockModelID)
		return bedrock, cfg.BedrockModelID, nil
	default:
		logger.Warn("no llm configured; running deterministic extraction only")
		return nil, "", nil
	}
}

// BuildEmailSender picks the configured outbound email provider.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but api key missing; using stub sender")
			return nil
		}
		return sender
	case "ses":
		awsCfg, err := BuildAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("failed to load aws config for ses", "error", err)
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	default:
		return nil
	}
}

// EngineDeps groups the infrastructure handles BuildEngine consumes. Any of
// them may be nil except Redis.
type EngineDeps struct {
	Redis    *redis.Client
	SQLDB    *sql.DB
	PgxPool  *pgxpool.Pool
	Registry prometheus.Registerer
}

// BuildEngine wires the full conversation engine from config: Redis sessions,
// policy and transcript stores, the schedule provider, order persistence,
// booking notifications, LLM assistance and metrics.
func BuildEngine(ctx context.Context, cfg *appconfig.Config, deps EngineDeps, logger *logging.Logger) (*conversation.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Redis == nil {
		return nil, fmt.Errorf("bootstrap: redis is required for session state")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sessions := conversation.NewRedisSessionStore(deps.Redis,
		otel.Tracer("reparoja.internal.conversation.session"))

	var policySrc policies.Source = policies.NewStaticSource(nil)
	if store := policies.NewStore(deps.SQLDB); store != nil {
		policySrc = store
		logger.Info("policy table served from postgres")
	} else {
		logger.Info("policy table served from static defaults")
	}

	var scheduler schedule.Provider = schedule.NewStaticProvider()
	if deps.PgxPool != nil {
		scheduler = schedule.NewPostgresProvider(deps.PgxPool)
		logger.Info("technician slots served from postgres")
	}

	m := metrics.NewConversationMetrics(deps.Registry)

	llm, model, err := BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []conversation.EngineOption{
		conversation.WithLogger(logger.Logger),
		conversation.WithMetrics(m),
		conversation.WithScheduleWindow(cfg.ScheduleDays, cfg.ScheduleMaxSlots),
		conversation.WithExtractor(conversation.NewEntityExtractor(llm, model, logger.Logger, m)),
		conversation.WithRouter(conversation.NewDecisionRouter(llm, model, logger.Logger, m)),
	}

	if deps.SQLDB != nil {
		opts = append(opts, conversation.WithTranscripts(conversation.NewTranscriptStore(deps.SQLDB)))
	}
	if deps.PgxPool != nil {
		opts = append(opts, conversation.WithBookingRecorder(
			orders.NewRecorder(orders.NewStore(deps.PgxPool))))
	}
	if cfg.OpsEmail != "" {
		sender := BuildEmailSender(ctx, cfg, logger)
		opts = append(opts, conversation.WithBookingNotifier(
			notify.NewService(sender, cfg.OpsEmail, logger)))
	}

	return conversation.NewEngine(sessions, policySrc, scheduler, opts...), nil
}

// BuildDispatcher puts the queue in front of the engine. With UseMemoryQueue
// the in-process queue is used; otherwise SQS via CONVERSATION_QUEUE_URL.
func BuildDispatcher(ctx context.Context, cfg *appconfig.Config, engine conversation.Service, logger *logging.Logger) (conversation.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("bootstrap: engine is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.UseMemoryQueue || cfg.ConversationQueueURL == "" {
		logger.Info("conversation dispatcher using in-memory queue")
		return conversation.NewQueueDispatcher(engine, conversation.NewMemoryQueue(64), logger,
			conversation.WithWorkerCount(cfg.WorkerCount)), nil
	}

	awsCfg, err := BuildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
	logger.Info("conversation dispatcher using sqs", "queue_url", cfg.ConversationQueueURL)
	return conversation.NewQueueDispatcher(engine, queue, logger,
		conversation.WithWorkerCount(cfg.WorkerCount)), nil
}
