// Package events bridges group chat activity to NATS JetStream.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/goccy/go-json"
)

// MessageEvent is published for every transcript line.
type MessageEvent struct {
	Group   string             `json:"group"`
	Message models.ChatMessage `json:"message"`
}

// PreferencesEvent is published after a member's preferences are committed.
type PreferencesEvent struct {
	Group       string                  `json:"group"`
	UserID      string                  `json:"user_id"`
	Preferences models.PreferenceRecord `json:"preferences"`
	Harmony     float64                 `json:"harmony"`
	At          time.Time               `json:"at"`
}

// ResetEvent is published when a group is wiped.
type ResetEvent struct {
	Group string    `json:"group"`
	At    time.Time `json:"at"`
}

// InboundMessage is a chat message delivered over NATS instead of HTTP.
type InboundMessage struct {
	Group    string `json:"group"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Message  string `json:"message"`
}

// DecodeInbound parses and validates an inbound payload.
func DecodeInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("failed to decode inbound message: %w", err)
	}
	if strings.TrimSpace(msg.UserID) == "" {
		return InboundMessage{}, fmt.Errorf("inbound message without user_id")
	}
	return msg, nil
}
