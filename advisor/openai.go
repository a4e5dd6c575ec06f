package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	DefaultModel         = "gpt-4o-mini"
	DefaultTimeout       = 30 * time.Second
	DefaultRatePerMinute = 6
)

const systemPrompt = `You are a decision analyst. You receive a decision tree as JSON.
Decision nodes are choices, chance nodes are uncertain events whose children carry probabilities,
and terminal nodes carry payouts. calculatedValue is the expected monetary value found by backward
induction and emv is the value of the whole tree when known.
Explain the recommended choices, the main risks and any probabilities that look inconsistent.
Answer in a few short paragraphs.`

type Options struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute int
}

// OpenAI implements Analyzer with a chat completion.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingKey
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}

	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RatePerMinute))
	}

	log.Info().Msgf("advisor using model %s", opts.Model)
	return &OpenAI{
		client:  openai.NewClientWithConfig(config),
		model:   opts.Model,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func (o *OpenAI) Analyze(ctx context.Context, request Request) (string, error) {
	prompt, err := request.prompt()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrServiceFailure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit: %w", ErrServiceFailure, err)
	}

	log.Debug().Msgf("requesting analysis from %s", o.model)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("advisor call failed")
		return "", fmt.Errorf("%w: %w", ErrServiceFailure, err)
	}
	if len(resp.Choices) == 0 {
		log.Warn().Msg("advisor returned no choices")
		return "", fmt.Errorf("%w: no choices returned", ErrServiceFailure)
	}
	return resp.Choices[0].Message.Content, nil
}
