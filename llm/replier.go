package llm

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/aimeeyu8/Tastebuddy/ranking"
	"github.com/goccy/go-json"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/memory/sqlite3"
)

const (
	replyTemperature = 0.7
	promptTopN       = 5
	sessionPrefix    = "tastebuddy-"
	truncateTrigger  = "Top Recommendations"
)

// NoMatchesReply is sent instead of calling the model when nothing survived.
const NoMatchesReply = "I couldn't find any places that match those filters.\n" +
	"If you're okay relaxing the budget, location, or allergy rules a bit, I can try again with a wider search."

const safetyReminder = "These seem like good matches, but please still double-check the menu and ask the staff about any allergies."

var unsafePhrases = []string{
	"I didn’t include any risky options",
	"I didn't include any risky options",
	"so you can feel good about these choices",
	"so you can feel safe about these choices",
	"so you can feel safe choosing any of these",
}

// ReplyRequest is everything the reply is written from.
type ReplyRequest struct {
	Message     string
	Prefs       models.PreferenceRecord
	Restaurants []ranking.Ranked
	Notes       map[string]any
}

// Replier writes the group-facing recommendation text. Each group keeps its
// own conversation memory, in sqlite when a database is given.
type Replier struct {
	model  llms.Model
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex
	buffers map[string]*memory.ConversationBuffer
}

// NewReplier builds a replier. db may be nil for in-process memory only.
func NewReplier(model llms.Model, db *sql.DB, logger *slog.Logger) *Replier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replier{
		model:   model,
		db:      db,
		logger:  logger,
		buffers: make(map[string]*memory.ConversationBuffer),
	}
}

func (r *Replier) buffer(groupID string) *memory.ConversationBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.buffers[groupID]
	if !ok {
		buf = r.newBuffer(groupID)
		r.buffers[groupID] = buf
	}
	return buf
}

func (r *Replier) newBuffer(groupID string) *memory.ConversationBuffer {
	if r.db == nil {
		return memory.NewConversationBuffer()
	}
	chatHistory := sqlite3.NewSqliteChatMessageHistory(
		sqlite3.WithSession(sessionPrefix+groupID),
		sqlite3.WithDB(r.db),
	)
	return memory.NewConversationBuffer(memory.WithChatHistory(chatHistory))
}

// Reply generates the reply for one group turn.
func (r *Replier) Reply(ctx context.Context, groupID string, req ReplyRequest) (string, error) {
	if len(req.Restaurants) == 0 {
		return NoMatchesReply, nil
	}

	prompt, err := buildReplyPrompt(req)
	if err != nil {
		return "", err
	}

	chain := chains.NewConversation(r.model, r.buffer(groupID))
	reply, err := chains.Run(ctx, &chain, prompt, chains.WithTemperature(replyTemperature))
	if err != nil {
		r.logger.Error("reply generation failed", "group", groupID, "error", err)
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	return sanitizeReply(reply), nil
}

// Forget clears a group's conversation memory.
func (r *Replier) Forget(ctx context.Context, groupID string) error {
	r.mu.Lock()
	buf, ok := r.buffers[groupID]
	delete(r.buffers, groupID)
	r.mu.Unlock()

	if !ok {
		if r.db == nil {
			return nil
		}
		// history may survive from a previous process
		buf = r.newBuffer(groupID)
	}

	if err := buf.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear memory for group %s: %w", groupID, err)
	}
	return nil
}

type restaurantSummary struct {
	Name         string   `json:"name"`
	Rating       float64  `json:"rating"`
	Price        string   `json:"price"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	Categories   []string `json:"categories"`
}

func buildReplyPrompt(req ReplyRequest) (string, error) {
	top := req.Restaurants
	if len(top) > promptTopN {
		top = top[:promptTopN]
	}

	summaries := make([]restaurantSummary, len(top))
	for i, r := range top {
		price := r.Price
		if price == "" {
			price = "?"
		}
		summaries[i] = restaurantSummary{
			Name:         r.Title,
			Rating:       r.Rating,
			Price:        price,
			Neighborhood: r.Neighborhoods,
			Categories:   r.Categories,
		}
	}

	prefsJSON, err := json.MarshalIndent(req.Prefs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode preferences: %w", err)
	}
	restaurantsJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode restaurants: %w", err)
	}
	notes := req.Notes
	if notes == nil {
		notes = map[string]any{}
	}
	notesJSON, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode notes: %w", err)
	}

	safety := generalSafetyInstruction
	if allergies := noteAllergies(req); len(allergies) > 0 {
		safety = fmt.Sprintf(allergyInstruction, strings.Join(allergies, ", "))
	}

	return fmt.Sprintf(replyTemplate,
		SystemPrompt,
		req.Message,
		prefsJSON,
		restaurantsJSON,
		notesJSON,
		safety,
	), nil
}

func noteAllergies(req ReplyRequest) []string {
	if list, ok := req.Notes["allergies"].([]string); ok && len(list) > 0 {
		return list
	}
	return req.Prefs.NormalizedAllergies()
}

// sanitizeReply drops a repeated recommendations section and replaces
// phrases that promise allergen safety.
func sanitizeReply(reply string) string {
	if i := strings.Index(reply, truncateTrigger); i >= 0 {
		reply = reply[:i]
	}
	reply = strings.TrimSpace(reply)

	for _, phrase := range unsafePhrases {
		reply = strings.ReplaceAll(reply, phrase, safetyReminder)
	}
	return reply
}
