package memory

import (
	"encoding/json"
	"strings"
)

type Action string

const (
	ActionStore    Action = "store"
	ActionRetrieve Action = "retrieve"
)

// Request is the structured payload carried in the text part of an
// inter-agent message. Plain text that does not parse as a Request is
// treated as a retrieve query, so a raw user message works as-is.
type Request struct {
	Action    Action `json:"action"`
	Problem   string `json:"problem,omitempty"`
	Solution  string `json:"solution,omitempty"`
	Resources string `json:"resources,omitempty"`
	Query     string `json:"query,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
}

// Encode renders the request as the message text
func (r *Request) Encode() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(raw)
}

// DecodeRequest parses a message text into a Request. Non-JSON text falls
// back to a retrieve request with the raw text as the query.
func DecodeRequest(text string) *Request {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		var req Request
		if err := json.Unmarshal([]byte(trimmed), &req); err == nil {
			switch req.Action {
			case ActionStore, ActionRetrieve:
				return &req
			}
		}
	}

	return &Request{Action: ActionRetrieve, Query: text}
}
