package model

import (
	"github.com/google/uuid"
)

type MessageID string

// NewMessageID generates a new unique MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Part is one ordered element of a message body. Only text parts are
// exchanged in this protocol.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Message is the inter-agent envelope. Every sent message gets exactly one
// logical response or an explicit failure.
type Message struct {
	MessageID MessageID `json:"messageId"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
}

// NewTextMessage builds a single-part text message with a fresh ID
func NewTextMessage(role Role, text string) *Message {
	return &Message{
		MessageID: NewMessageID(),
		Role:      role,
		Parts:     []Part{{Kind: "text", Text: text}},
	}
}

// Text returns the first text part of the message, or an empty string
func (m *Message) Text() string {
	for _, p := range m.Parts {
		if p.Kind == "text" {
			return p.Text
		}
	}
	return ""
}

// AgentSkill describes one operation a remote agent supports
type AgentSkill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AgentCard is the discovery document describing a remote agent. It is
// fetched once per base URL and cached for the process lifetime; staleness
// is acceptable since the card is control metadata, not payload.
type AgentCard struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Version     string       `json:"version"`
	Skills      []AgentSkill `json:"skills"`
}
