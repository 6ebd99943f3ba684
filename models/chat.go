package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SenderSystem = "system"
	SenderBot    = "TasteBuddy"
)

// ChatMessage is one line of a group transcript.
type ChatMessage struct {
	ID          uuid.UUID    `json:"id"`
	Sender      string       `json:"sender"`
	Text        string       `json:"text"`
	Harmony     *float64     `json:"harmony"`
	Restaurants []Restaurant `json:"restaurants"`
	CreatedAt   time.Time    `json:"created_at"`
}

func NewChatMessage(sender, text string) ChatMessage {
	return ChatMessage{
		ID:          uuid.New(),
		Sender:      sender,
		Text:        text,
		Restaurants: []Restaurant{},
		CreatedAt:   time.Now().UTC(),
	}
}
