package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are a data analyst. Rewrite the following dataset profile " +
	"as a short, clear narrative for a business reader. Keep it factual, mention the " +
	"dataset size, notable statistics, the strongest correlation if present, and any " +
	"data quality concerns. Do not invent numbers that are not in the profile."

// Config holds the narrative generator settings. The credential comes from the
// configuration layer and is never logged.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RetryWait time.Duration
}

// Generator requests narrative summaries from an OpenAI-compatible endpoint.
type Generator struct {
	client    openai.Client
	model     string
	timeout   time.Duration
	retryWait time.Duration
	hasKey    bool
}

func NewGenerator(cfg Config) *Generator {
	// Disable the SDK's own retries; transient failures get exactly one retry
	// with backoff here.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 2 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &Generator{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		retryWait: cfg.RetryWait,
		hasKey:    cfg.APIKey != "" || os.Getenv("OPENAI_API_KEY") != "",
	}
}

// Generate sends the bounded profile summary to the provider and returns the
// completion text. Auth and quota failures are fatal; timeouts, rate limits,
// and 5xx responses are retried once before being surfaced as TransientError.
func (g *Generator) Generate(ctx context.Context, summary string) (string, error) {
	if !g.hasKey {
		return "", &AuthError{&APIError{StatusCode: 401, Message: "no API credential configured"}}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var out string
	op := func() error {
		res, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: g.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(summary),
			},
			Temperature: openai.Float(0.4),
		})
		if err != nil {
			cerr := classify(err)
			var terr *TransientError
			if errors.As(cerr, &terr) {
				slog.Warn("narrative request failed, may retry", "error", cerr)
				return cerr
			}
			return backoff.Permanent(cerr)
		}
		if len(res.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("provider returned no choices"))
		}
		out = res.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.retryWait
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 1), ctx)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TransientError{Err: err}
		}
		return "", err
	}
	return out, nil
}

// classify maps provider errors to the failure taxonomy.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		structured := &APIError{StatusCode: apierr.StatusCode, Code: apierr.Code, Message: apierr.Message}
		switch {
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return &AuthError{structured}
		case apierr.StatusCode == 402 || apierr.Code == "insufficient_quota":
			return &QuotaError{structured}
		case apierr.StatusCode == 429 || apierr.StatusCode >= 500:
			return &TransientError{Err: structured}
		default:
			return structured
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransientError{Err: err}
	}
	// Anything else at this level is a connection-layer failure.
	return &TransientError{Err: err}
}
