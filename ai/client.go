package ai

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"
	"greenhouse-assistant/backend/pkg/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "greenhouse-assistant/backend/ai"

// Generator produces the next model reply for an ordered list of turns
type Generator interface {
	Generate(ctx context.Context, contents []Turn) (string, error)
}

// Options configures a Client
type Options struct {
	SystemPrompt string
	// Timeout bounds a single provider call; zero means no extra bound
	Timeout time.Duration
	Breaker *resilience.CircuitBreaker
	Logger  *logger.Logger
}

// Client talks to the language model. It holds no per-conversation state and
// is safe for concurrent use.
type Client struct {
	gen          Generator
	systemPrompt string
	timeout      time.Duration
	breaker      *resilience.CircuitBreaker
	log          *logger.Logger

	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewClient wraps a generator
func NewClient(gen Generator, opts Options) (*Client, error) {
	if gen == nil {
		return nil, apperrors.NewConfigurationError("AI client is not configured", ErrMissingCredential)
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	meter := otel.Meter(instrumentationName)
	requests, err := meter.Int64Counter("ai_requests_total",
		metric.WithDescription("Language model calls by operation and outcome"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("ai_request_duration_seconds",
		metric.WithDescription("Language model call latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Client{
		gen:          gen,
		systemPrompt: opts.SystemPrompt,
		timeout:      opts.Timeout,
		breaker:      opts.Breaker,
		log:          opts.Logger,
		tracer:       otel.Tracer(instrumentationName),
		requests:     requests,
		latency:      latency,
	}, nil
}

// SystemPrompt returns the prompt that primes every session
func (c *Client) SystemPrompt() string {
	return c.systemPrompt
}

// Breaker returns the circuit breaker guarding provider calls, if any
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

// Session is one conversation with the model. It is call-scoped and must not
// be shared between goroutines without external coordination.
type Session struct {
	mu      sync.Mutex
	history []Turn
}

// History returns a copy of the turns the next message will follow
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turns...)
}

// CreateSession starts a session whose history is the priming exchange
// followed by history
func (c *Client) CreateSession(history []Turn) *Session {
	turns := make([]Turn, 0, len(history)+2)
	turns = append(turns, UserTurn(c.systemPrompt), ModelTurn(Acknowledgment))
	turns = append(turns, history...)
	return &Session{history: turns}
}

// SendMessage sends message, augmented with the optional context, and
// returns the reply text. On success the exchange is added to the session.
func (c *Client) SendMessage(ctx context.Context, session *Session, message string, data SensorData, analysis *PlantAnalysis) (string, error) {
	prompt := BuildPrompt(message, data, analysis)
	contents := append(session.History(), UserTurn(prompt))

	reply, err := c.generate(ctx, "chat", contents)
	if err != nil {
		c.log.WithContext(ctx).LogError(err, "Error sending message to AI provider")
		return "", apperrors.NewProviderError("Error communicating with the AI provider", err)
	}

	session.append(UserTurn(prompt), ModelTurn(reply))
	return reply, nil
}

// GenerateOnce runs a single turn with no history and no system prompt
func (c *Client) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	reply, err := c.generate(ctx, "generate", []Turn{UserTurn(prompt)})
	if err != nil {
		c.log.WithContext(ctx).LogError(err, "Error generating content")
		return "", apperrors.NewProviderError("Error generating content", err)
	}
	return reply, nil
}

func (c *Client) generate(ctx context.Context, op string, contents []Turn) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ai."+op, trace.WithAttributes(
		attribute.Int("ai.turns", len(contents)),
	))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	var reply string
	call := func(ctx context.Context) error {
		var err error
		reply, err = c.gen.Generate(ctx, contents)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}

	outcome := "success"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("operation", op), attribute.String("outcome", outcome))
	c.requests.Add(ctx, 1, attrs)
	c.latency.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}
