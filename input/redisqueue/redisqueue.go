// Package redisqueue takes text commands from a Redis list and pushes each
// result onto a reply list, so remote processes can drive an orchestrator.
//
// A request is a JSON object pushed with RPUSH onto the request list:
//
//	{"id": "req-1", "command": "provider periodic period=1s"}
//
// The reply carries the same id:
//
//	{"id": "req-1", "ok": true, "result": "periodic [periodic] running hooks=0 cycles=0"}
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tailored-agentic-units/phf/orchestrator"
)

const (
	DefaultRequestKey  = "phf:commands"
	DefaultReplyKey    = "phf:replies"
	DefaultPollTimeout = time.Second
)

// Parser turns a command line into a command. *orchestrator.Orchestrator
// implements it.
type Parser interface {
	ParseCommand(line string, src orchestrator.Source) (*orchestrator.Command, error)
}

type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

type Reply struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Source struct {
	client      *redis.Client
	parser      Parser
	name        string
	requestKey  string
	replyKey    string
	pollTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]string
}

type Option func(*Source)

func WithName(name string) Option {
	return func(s *Source) { s.name = name }
}

// WithKeys sets the request and reply list keys.
func WithKeys(requestKey, replyKey string) Option {
	return func(s *Source) {
		s.requestKey = requestKey
		s.replyKey = replyKey
	}
}

// WithPollTimeout bounds each BLPOP so cancellation is noticed promptly.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(client *redis.Client, parser Parser, opts ...Option) *Source {
	s := &Source{
		client:      client,
		parser:      parser,
		name:        "redis",
		requestKey:  DefaultRequestKey,
		replyKey:    DefaultReplyKey,
		pollTimeout: DefaultPollTimeout,
		logger:      slog.Default(),
		pending:     make(map[uuid.UUID]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Source) Name() string {
	return s.name
}

// Produce pops requests until one parses into a command. Malformed requests
// are answered immediately with an error reply.
func (s *Source) Produce(ctx context.Context) (*orchestrator.Command, error) {
	for {
		values, err := s.client.BLPop(ctx, s.pollTimeout, s.requestKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to pop request: %w", err)
		}

		// BLPOP returns the key followed by the value.
		payload := values[1]

		var req Request
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			s.reply(ctx, Reply{Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}

		cmd, err := s.parser.ParseCommand(req.Command, s)
		if err != nil {
			s.reply(ctx, Reply{ID: req.ID, Error: err.Error()})
			continue
		}

		s.mu.Lock()
		s.pending[cmd.ID] = req.ID
		s.mu.Unlock()

		return cmd, nil
	}
}

// Deliver pushes the reply for a command this source produced.
func (s *Source) Deliver(ctx context.Context, result orchestrator.Result) {
	s.mu.Lock()
	id, ok := s.pending[result.CommandID]
	delete(s.pending, result.CommandID)
	s.mu.Unlock()

	if !ok {
		s.logger.WarnContext(ctx, "result for unknown command",
			slog.String("source", s.name),
			slog.String("command", result.CommandID.String()),
		)
		return
	}

	if result.Err != nil {
		s.reply(ctx, Reply{ID: id, Error: result.Err.Error()})
		return
	}
	s.reply(ctx, Reply{ID: id, OK: true, Result: orchestrator.Describe(result.Value)})
}

func (s *Source) reply(ctx context.Context, r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal reply",
			slog.String("source", s.name),
			slog.String("error", err.Error()),
		)
		return
	}

	// Replies are still pushed while the orchestrator shuts down.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pollTimeout)
	defer cancel()

	if err := s.client.RPush(pushCtx, s.replyKey, data).Err(); err != nil {
		s.logger.ErrorContext(ctx, "failed to push reply",
			slog.String("source", s.name),
			slog.String("request", r.ID),
			slog.String("error", err.Error()),
		)
	}
}
