package a2a

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/utils/logging"
	"github.com/remora-agent/remora/pkg/utils/metrics"
)

// Handler answers a single inbound message text with a reply text. It
// must not fail: failure descriptions are carried in the returned string.
type Handler interface {
	HandleMessage(ctx context.Context, text string) string
}

// Server exposes an agent over HTTP: the agent card on the well-known
// path and a JSON-RPC message endpoint at the root. Every inbound message
// receives exactly one agent message in response.
type Server struct {
	card    *model.AgentCard
	handler Handler
	metrics metrics.Recorder
	mux     *http.ServeMux
}

// ServerOption is a functional option for Server
type ServerOption func(*Server)

// WithServerMetrics sets the message recorder
func WithServerMetrics(r metrics.Recorder) ServerOption {
	return func(s *Server) {
		s.metrics = r
	}
}

// NewServer creates an agent server for the given card and handler
func NewServer(card *model.AgentCard, handler Handler, opts ...ServerOption) *Server {
	s := &Server{
		card:    card,
		handler: handler,
		metrics: metrics.Noop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+WellKnownPath, s.handleCard)
	mux.HandleFunc("POST /", s.handleMessage)
	s.mux = mux

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		logging.From(r.Context()).Error("failed to encode agent card", "error", err)
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rpcReq rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&rpcReq); err != nil {
		s.metrics.MessageHandled(false)
		s.writeError(w, rpcReq.ID, -32700, "failed to parse request")
		return
	}

	if rpcReq.Method != methodSendMessage {
		s.metrics.MessageHandled(false)
		s.writeError(w, rpcReq.ID, -32601, "unsupported method: "+rpcReq.Method)
		return
	}
	if rpcReq.Params.Message == nil || rpcReq.Params.Message.Text() == "" {
		s.metrics.MessageHandled(false)
		s.writeError(w, rpcReq.ID, -32602, "message has no text part")
		return
	}

	logging.From(ctx).Info("handling agent message",
		"message_id", rpcReq.Params.Message.MessageID)

	reply := s.handler.HandleMessage(ctx, rpcReq.Params.Message.Text())
	s.metrics.MessageHandled(true)

	s.writeResult(w, rpcReq.ID, model.NewTextMessage(model.RoleAgent, reply))
}

func (s *Server) writeResult(w http.ResponseWriter, id string, msg *model.Message) {
	w.Header().Set("Content-Type", "application/json")
	resp := rpcResponse{JSONRPC: "2.0", ID: id, Result: msg}
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		logging.Default().Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, id string, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	resp := rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		logging.Default().Error("failed to encode error response", "error", err)
	}
}
