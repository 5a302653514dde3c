package orchestrate

import (
	"context"
	"strings"

	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/service/memory"
	"github.com/remora-agent/remora/pkg/utils/logging"
)

// Gate decides whether a message deserves a response at all
type Gate interface {
	ShouldRespond(ctx context.Context, message string, isMention, isInThread bool) bool
}

// Transport delivers one message to a remote agent and returns its reply
type Transport interface {
	Send(ctx context.Context, baseURL, text string) (string, error)
}

// Troubleshooter produces a diagnostic answer for a query. It always
// returns text; failures are embedded in the answer.
type Troubleshooter interface {
	Troubleshoot(ctx context.Context, query string) string
}

// Engine routes each inbound message through gate, memory lookup and the
// diagnostic specialist, and always settles on exactly one outcome per
// message. Memory is advisory: lookup and store failures degrade to the
// live diagnostic path and never block the reply.
type Engine struct {
	gate       Gate
	transport  Transport
	specialist Troubleshooter
	memoryURL  string
	topK       int
}

// Option is a functional option for Engine
type Option func(*Engine)

// WithMemory points the engine at a remote memory agent. An empty URL
// leaves memory disabled and every message goes to the specialist.
func WithMemory(transport Transport, baseURL string) Option {
	return func(e *Engine) {
		e.transport = transport
		e.memoryURL = baseURL
	}
}

// WithTopK overrides how many cached solutions a lookup requests
func WithTopK(topK int) Option {
	return func(e *Engine) {
		e.topK = topK
	}
}

// New creates an orchestration engine
func New(gate Gate, specialist Troubleshooter, opts ...Option) *Engine {
	e := &Engine{
		gate:       gate,
		specialist: specialist,
		topK:       memory.DefaultTopK,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Handle processes one inbound message end to end: gate, memory lookup,
// live troubleshooting on a miss, then a best-effort store of the new
// solution. The returned outcome is terminal; there is never more than
// one reply for a message.
func (e *Engine) Handle(ctx context.Context, message string, isMention, isInThread bool) model.Outcome {
	if strings.TrimSpace(message) == "" {
		return model.NewSuppressed("empty message")
	}

	if !e.gate.ShouldRespond(ctx, message, isMention, isInThread) {
		return model.NewSuppressed("message not related to kubernetes or troubleshooting")
	}

	if cached, ok := e.lookup(ctx, message); ok {
		return model.NewReply(cached)
	}

	if e.specialist == nil {
		return model.NewFailed("no diagnostic specialist configured")
	}

	answer := e.specialist.Troubleshoot(ctx, message)
	e.store(ctx, message, answer)

	return model.NewReply(answer)
}

// lookup asks the memory agent for cached solutions. It reports a hit
// only for a substantive reply: the not-found sentinel, failure notes and
// transport errors all count as a miss.
func (e *Engine) lookup(ctx context.Context, message string) (string, bool) {
	if e.transport == nil || e.memoryURL == "" {
		return "", false
	}

	req := memory.Request{
		Action: memory.ActionRetrieve,
		Query:  message,
		TopK:   e.topK,
	}

	reply, err := e.transport.Send(ctx, e.memoryURL, req.Encode())
	if err != nil {
		logging.From(ctx).Warn("memory lookup failed, falling back to live troubleshooting", "error", err)
		return "", false
	}

	if reply == "" || reply == memory.NotFoundSentinel {
		return "", false
	}
	if strings.HasPrefix(reply, "Failed to retrieve solutions:") {
		logging.From(ctx).Warn("memory agent reported retrieval failure", "reply", reply)
		return "", false
	}

	return reply, true
}

// store sends the fresh solution to the memory agent. Failures are
// logged and swallowed; the user still gets the answer. Diagnostic
// failures are not stored so a broken run cannot poison the cache.
func (e *Engine) store(ctx context.Context, problem, solution string) {
	if e.transport == nil || e.memoryURL == "" {
		return
	}
	if strings.HasPrefix(solution, "Error during troubleshooting:") {
		return
	}

	req := memory.Request{
		Action:   memory.ActionStore,
		Problem:  problem,
		Solution: solution,
	}

	reply, err := e.transport.Send(ctx, e.memoryURL, req.Encode())
	if err != nil {
		logging.From(ctx).Warn("failed to store solution in memory", "error", err)
		return
	}
	if strings.HasPrefix(reply, "Failed to store solution:") {
		logging.From(ctx).Warn("memory agent rejected solution", "reply", reply)
	}
}
