package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/model"
)

const (
	// WellKnownPath is where an agent publishes its discovery card
	WellKnownPath = "/.well-known/agent.json"

	methodSendMessage = "message/send"

	// Troubleshooting exchanges are slow, so the send timeout is on the
	// order of minutes. Card resolution is cheap metadata.
	defaultSendTimeout    = 3 * time.Minute
	defaultResolveTimeout = 30 * time.Second
)

var ErrEmptyResponse = goerr.New("agent response has no text part")

// Client performs request/response exchanges with a remote agent. Each
// send is a self-contained blocking round trip over its own connection;
// agent cards are cached per base URL for the process lifetime.
type Client struct {
	httpClient     *http.Client
	sendTimeout    time.Duration
	resolveTimeout time.Duration

	cardMu sync.Mutex
	cards  map[string]*model.AgentCard
}

// ClientOption is a functional option for Client
type ClientOption func(*Client)

// WithSendTimeout overrides the per-send timeout
func WithSendTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.sendTimeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client (used by tests)
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an inter-agent transport client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			// No connection reuse across calls: each exchange is scoped to
			// one connection
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		sendTimeout:    defaultSendTimeout,
		resolveTimeout: defaultResolveTimeout,
		cards:          make(map[string]*model.AgentCard),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Resolve fetches the remote agent's card, caching it per base URL. There
// is no invalidation: the card is control metadata and staleness is
// acceptable.
func (c *Client) Resolve(ctx context.Context, baseURL string) (*model.AgentCard, error) {
	c.cardMu.Lock()
	defer c.cardMu.Unlock()

	if card, ok := c.cards[baseURL]; ok {
		return card, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.resolveTimeout)
	defer cancel()

	cardURL := strings.TrimSuffix(baseURL, "/") + WellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build card request", goerr.V("url", cardURL))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch agent card", goerr.V("url", cardURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected status for agent card",
			goerr.V("url", cardURL),
			goerr.V("status", resp.Status))
	}

	var card model.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, goerr.Wrap(err, "failed to decode agent card", goerr.V("url", cardURL))
	}

	c.cards[baseURL] = &card
	return &card, nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Message *model.Message `json:"message"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Result  *model.Message `json:"result,omitempty"`
	Error   *rpcError      `json:"error,omitempty"`
}

// Send resolves the remote agent, delivers one user message and returns
// the first text part of the single reply. Timeouts and transport errors
// surface as errors; callers decide how to degrade.
func (c *Client) Send(ctx context.Context, baseURL, text string) (string, error) {
	card, err := c.Resolve(ctx, baseURL)
	if err != nil {
		return "", err
	}

	endpoint := card.URL
	if endpoint == "" {
		endpoint = baseURL
	}

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	rpcReq := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  methodSendMessage,
		Params: rpcParams{
			Message: model.NewTextMessage(model.RoleUser, text),
		},
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal message request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", goerr.Wrap(err, "failed to build message request", goerr.V("endpoint", endpoint))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to send message", goerr.V("endpoint", endpoint))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read message response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", goerr.New("unexpected status for message send",
			goerr.V("endpoint", endpoint),
			goerr.V("status", resp.Status))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return "", goerr.Wrap(err, "failed to decode message response")
	}
	if rpcResp.Error != nil {
		return "", goerr.New("agent returned error",
			goerr.V("code", rpcResp.Error.Code),
			goerr.V("message", rpcResp.Error.Message))
	}
	if rpcResp.Result == nil {
		return "", goerr.Wrap(ErrEmptyResponse, "missing result")
	}

	reply := rpcResp.Result.Text()
	if reply == "" {
		return "", ErrEmptyResponse
	}

	return reply, nil
}
