package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/visitor-insights/internal/insights"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
)

// SummarySource supplies the aggregated data the assistant talks about.
type SummarySource interface {
	Summary(ctx context.Context) (insights.Summary, error)
}

// SummaryFunc adapts a function to SummarySource.
type SummaryFunc func(ctx context.Context) (insights.Summary, error)

func (f SummaryFunc) Summary(ctx context.Context) (insights.Summary, error) { return f(ctx) }

// Answer is the reply to a chat message together with the data it was
// grounded on.
type Answer struct {
	Insight     string           `json:"insight"`
	DataContext insights.Summary `json:"data_context"`
}

// Service answers questions about the current visitor summary.
type Service struct {
	provider    Provider
	summaries   SummarySource
	prompt      *Prompt
	temperature float64
	maxTokens   int
	maxHistory  int
	log         *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPrompt replaces the default system prompt.
func WithPrompt(p *Prompt) Option {
	return func(s *Service) { s.prompt = p }
}

// WithSampling sets temperature and the response token cap.
func WithSampling(temperature float64, maxTokens int) Option {
	return func(s *Service) {
		if temperature >= 0 {
			s.temperature = temperature
		}
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
	}
}

// WithMaxHistory bounds how many prior turns are forwarded.
func WithMaxHistory(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxHistory = n
		}
	}
}

// NewService creates an assistant with temperature 0.7, 500 max tokens
// and the last 20 history turns.
func NewService(provider Provider, summaries SummarySource, opts ...Option) (*Service, error) {
	s := &Service{
		provider:    provider,
		summaries:   summaries,
		temperature: 0.7,
		maxTokens:   500,
		maxHistory:  20,
		log:         logger.New("assistant"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prompt == nil {
		p, err := NewPrompt("", "")
		if err != nil {
			return nil, err
		}
		s.prompt = p
	}
	return s, nil
}

// ModelID reports the provider's model.
func (s *Service) ModelID() string { return s.provider.ModelID() }

// Ask sends message, preceded by history, to the provider with a system
// prompt built from the current summary. History turns with roles other
// than user and assistant are dropped.
func (s *Service) Ask(ctx context.Context, message string, history []Message) (*Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	summary, err := s.summaries.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	system, err := s.prompt.Render(summary)
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(history)+1)
	for _, m := range history {
		if (m.Role == RoleUser || m.Role == RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) > s.maxHistory {
		msgs = msgs[len(msgs)-s.maxHistory:]
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: message})

	start := time.Now()
	resp, err := s.provider.Generate(ctx, Request{
		System:      system,
		Messages:    msgs,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		s.log.Warn("generate failed", "model", s.provider.ModelID(), "error", err)
		return nil, err
	}
	s.log.Info("insight generated",
		"model", resp.Model,
		"turns", len(msgs),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"latency_ms", time.Since(start).Milliseconds())

	return &Answer{Insight: resp.Text, DataContext: summary}, nil
}
