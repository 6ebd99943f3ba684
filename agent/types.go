package main

import (
	"fmt"
	"strings"

	"github.com/aimeeyu8/Tastebuddy/chat"
)

type JoinRequest struct {
	Name string `json:"name"`
}

type ChatRequest struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Message  string `json:"message"`
}

func (c *ChatRequest) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return chat.ErrMissingUser
	}
	if strings.TrimSpace(c.Message) == "" {
		return chat.ErrEmptyMessage
	}
	if len(c.Message) > maxMessageLength {
		return fmt.Errorf("message is longer than %d bytes", maxMessageLength)
	}
	return nil
}

func (c *ChatRequest) ToInput() chat.Input {
	return chat.Input{
		UserID:   strings.TrimSpace(c.UserID),
		UserName: strings.TrimSpace(c.UserName),
		Message:  c.Message,
	}
}
