// Package chat runs the group chat pipeline: track participants, pick a
// conversational strategy and, when the bot should speak, turn the latest
// message into ranked restaurant recommendations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/aimeeyu8/Tastebuddy/filter"
	"github.com/aimeeyu8/Tastebuddy/harmony"
	"github.com/aimeeyu8/Tastebuddy/llm"
	"github.com/aimeeyu8/Tastebuddy/metrics"
	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/aimeeyu8/Tastebuddy/ranking"
	"github.com/aimeeyu8/Tastebuddy/strategy"
)

const (
	DefaultGroup       = "main"
	DefaultMention     = "@tastebuddy"
	DefaultSearchLimit = 12

	replyTopN     = 5
	summaryWindow = 10
	maxEncouraged = 2
	contextWindow = 5
	guestName     = "Guest"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrMissingUser  = errors.New("user_id is required")
)

const (
	noPlacesReply = "I couldn't find any places for that cuisine in this area.\n" +
		"Want me to try a nearby neighborhood or expand the cuisine search?"
	relaxReply = "I couldn't find any places that fully match all filters.\n" +
		"If you'd like, I can relax the allergy, budget, or cuisine rules and try again!"
	summaryHeader = "Here's a quick summary so far:"
)

type Extractor interface {
	Extract(ctx context.Context, text string) (models.PreferenceRecord, error)
}

type Searcher interface {
	Search(ctx context.Context, term, location string, limit int) ([]models.Restaurant, error)
}

type AllergenFilter interface {
	Filter(ctx context.Context, restaurants []models.Restaurant, allergies []string) ([]models.Restaurant, filter.AllergenReport)
}

type Replier interface {
	Reply(ctx context.Context, groupID string, req llm.ReplyRequest) (string, error)
	Forget(ctx context.Context, groupID string) error
}

// ConversationLog keeps every raw message per user.
type ConversationLog interface {
	Append(userID, message string) error
	Get(userID string) []string
	Forget(userIDs ...string) error
}

type Publisher interface {
	PublishMessage(group string, msg models.ChatMessage) error
	PublishPreferences(group, userID string, prefs models.PreferenceRecord, harmony float64) error
	PublishReset(group string) error
}

// Listener is called for every message added to a group transcript.
type Listener func(group string, msg models.ChatMessage)

type Options struct {
	Thresholds      strategy.Thresholds
	Mention         string
	DefaultLocation string
	SearchLimit     int
	Log             ConversationLog
	Publisher       Publisher
	Logger          *slog.Logger
}

type Input struct {
	UserID   string
	UserName string
	Message  string
}

type Reply struct {
	Text        string            `json:"reply"`
	Harmony     *float64          `json:"harmony_score,omitempty"`
	Restaurants []ranking.Ranked  `json:"restaurants"`
	Strategy    strategy.Strategy `json:"strategy"`
}

type room struct {
	mu       sync.Mutex
	state    *harmony.GroupState
	messages []models.ChatMessage
}

type Service struct {
	extractor Extractor
	searcher  Searcher
	allergens AllergenFilter
	replier   Replier
	log       ConversationLog
	publisher Publisher

	thresholds      strategy.Thresholds
	mention         string
	defaultLocation string
	searchLimit     int
	logger          *slog.Logger

	mu    sync.Mutex
	rooms map[string]*room

	listenersMu sync.RWMutex
	listeners   []Listener
}

func NewService(extractor Extractor, searcher Searcher, allergens AllergenFilter, replier Replier, opts Options) *Service {
	if opts.Thresholds == (strategy.Thresholds{}) {
		opts.Thresholds = strategy.DefaultThresholds()
	}
	if opts.Mention == "" {
		opts.Mention = DefaultMention
	}
	if opts.SearchLimit < 1 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		extractor:       extractor,
		searcher:        searcher,
		allergens:       allergens,
		replier:         replier,
		log:             opts.Log,
		publisher:       opts.Publisher,
		thresholds:      opts.Thresholds,
		mention:         strings.ToLower(opts.Mention),
		defaultLocation: opts.DefaultLocation,
		searchLimit:     opts.SearchLimit,
		logger:          opts.Logger,
		rooms:           make(map[string]*room),
	}
}

// OnMessage registers l for every future transcript message of any group.
func (s *Service) OnMessage(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) room(group string) *room {
	group = groupName(group)

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[group]
	if !ok {
		r = &room{state: harmony.NewGroupState()}
		s.rooms[group] = r
	}
	return r
}

// push appends a transcript line. The caller holds r.mu.
func (s *Service) push(group string, r *room, msg models.ChatMessage) {
	r.messages = append(r.messages, msg)

	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()
	for _, l := range listeners {
		l(group, msg)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMessage(group, msg); err != nil {
			s.logger.Warn("failed to publish chat message", "group", group, "error", err)
		}
	}
}

func botMessage(text string, score *float64, restaurants []models.Restaurant) models.ChatMessage {
	msg := models.NewChatMessage(models.SenderBot, text)
	msg.Harmony = score
	if restaurants != nil {
		msg.Restaurants = restaurants
	}
	return msg
}

// Join announces name in the group transcript.
func (s *Service) Join(group, name string) models.ChatMessage {
	if strings.TrimSpace(name) == "" {
		name = "Unknown"
	}
	group = groupName(group)
	r := s.room(group)
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := models.NewChatMessage(models.SenderSystem, name+" joined the chat")
	s.push(group, r, msg)
	return msg
}

// History returns a copy of the group transcript.
func (s *Service) History(group string) []models.ChatMessage {
	r := s.room(group)
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Follow calls fn with a copy of the transcript while holding the group
// lock, so a listener registered by fn misses no message.
func (s *Service) Follow(group string, fn func(backlog []models.ChatMessage)) {
	r := s.room(group)
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.ChatMessage, len(r.messages))
	copy(out, r.messages)
	fn(out)
}

// Reset clears the group's state, transcript, logged messages and reply
// memory.
func (s *Service) Reset(ctx context.Context, group string) error {
	group = groupName(group)
	r := s.room(group)
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.state.Participants()
	r.state.Reset()
	r.messages = nil

	var errs []error
	if s.log != nil && len(members) > 0 {
		if err := s.log.Forget(members...); err != nil {
			errs = append(errs, fmt.Errorf("failed to forget conversation log: %w", err))
		}
	}
	if err := s.replier.Forget(ctx, group); err != nil {
		errs = append(errs, err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishReset(group); err != nil {
			s.logger.Warn("failed to publish reset", "group", group, "error", err)
		}
	}

	s.logger.Info("group reset", "group", group, "members", len(members))
	return errors.Join(errs...)
}

// HandleMessage runs one user message through the group pipeline and
// returns the bot's reply. A Silent turn returns an empty Text.
func (s *Service) HandleMessage(ctx context.Context, group string, in Input) (Reply, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return Reply{}, ErrMissingUser
	}
	if strings.TrimSpace(in.Message) == "" {
		return Reply{}, ErrEmptyMessage
	}
	name := strings.TrimSpace(in.UserName)
	if name == "" {
		name = guestName
	}

	group = groupName(group)
	r := s.room(group)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Touch(in.UserID, name, len(in.Message))
	if s.log != nil {
		if err := s.log.Append(in.UserID, in.Message); err != nil {
			s.logger.Warn("failed to append conversation log", "user_id", in.UserID, "error", err)
		}
	}
	s.push(group, r, models.NewChatMessage(name, in.Message))

	score, prefs, err := s.commit(ctx, group, r, in)
	if err != nil {
		return Reply{}, err
	}

	mentioned := strings.Contains(strings.ToLower(in.Message), s.mention)
	strat := strategy.Choose(r.state, mentioned, s.thresholds)
	metrics.RecordMessage(strat.String())
	s.logger.Debug("strategy chosen", "group", group, "user_id", in.UserID, "strategy", strat, "harmony", score)

	switch strat {
	case strategy.Encouragement:
		return s.encourage(group, r, score), nil
	case strategy.Summary:
		return s.summarize(group, r, score), nil
	case strategy.Silent:
		return Reply{Harmony: &score, Restaurants: []ranking.Ranked{}, Strategy: strategy.Silent}, nil
	default:
		return s.recommend(ctx, group, r, in, prefs, score, strat)
	}
}

func (s *Service) encourage(group string, r *room, score float64) Reply {
	lurkers := r.state.Lurkers(s.thresholds.LurkerRatio)
	if len(lurkers) > maxEncouraged {
		lurkers = lurkers[:maxEncouraged]
	}
	names := make([]string, len(lurkers))
	for i, id := range lurkers {
		names[i] = r.state.DisplayName(id, "someone")
	}

	text := fmt.Sprintf("Hey %s, we'd love your input too!", strings.Join(names, ", "))
	s.push(group, r, botMessage(text, nil, nil))
	return Reply{Text: text, Harmony: &score, Restaurants: []ranking.Ranked{}, Strategy: strategy.Encouragement}
}

func (s *Service) summarize(group string, r *room, score float64) Reply {
	r.state.MarkBotTurn()

	recent := r.messages
	if len(recent) > summaryWindow {
		recent = recent[len(recent)-summaryWindow:]
	}
	lines := make([]string, 0, len(recent)+1)
	lines = append(lines, summaryHeader)
	for _, m := range recent {
		lines = append(lines, m.Sender+": "+m.Text)
	}

	text := strings.Join(lines, "\n")
	s.push(group, r, botMessage(text, nil, nil))
	return Reply{Text: text, Harmony: &score, Restaurants: []ranking.Ranked{}, Strategy: strategy.Summary}
}

// commit extracts the sender's preferences and stores them before any
// strategy looks at the group.
func (s *Service) commit(ctx context.Context, group string, r *room, in Input) (float64, models.PreferenceRecord, error) {
	prefs, err := s.extractor.Extract(ctx, in.Message)
	if err != nil {
		s.logger.Error("preference extraction failed", "group", group, "user_id", in.UserID, "error", err)
		return 0, models.PreferenceRecord{}, fmt.Errorf("failed to extract preferences: %w", err)
	}

	score := r.state.CommitAndScore(in.UserID, prefs)
	metrics.RecordHarmony(score)

	if s.publisher != nil {
		if err := s.publisher.PublishPreferences(group, in.UserID, prefs, score); err != nil {
			s.logger.Warn("failed to publish preferences", "group", group, "error", err)
		}
	}
	return score, prefs, nil
}

// recentMessages returns the sender's latest logged messages, oldest first.
func (s *Service) recentMessages(userID string) []string {
	if s.log == nil {
		return nil
	}
	msgs := s.log.Get(userID)
	if len(msgs) > contextWindow {
		msgs = msgs[len(msgs)-contextWindow:]
	}
	return msgs
}

func (s *Service) recommend(ctx context.Context, group string, r *room, in Input, prefs models.PreferenceRecord, score float64, strat strategy.Strategy) (Reply, error) {
	term := prefs.PrimaryCuisine()
	location := prefs.Location
	if location == "" {
		location = s.defaultLocation
	}

	found, err := s.searcher.Search(ctx, term, location, s.searchLimit)
	if err != nil {
		s.logger.Error("restaurant search failed", "group", group, "term", term, "location", location, "error", err)
		return Reply{}, fmt.Errorf("failed to search restaurants: %w", err)
	}
	if len(found) == 0 {
		return s.fallback(group, r, noPlacesReply, score, strat), nil
	}

	allergies := prefs.NormalizedAllergies()
	safe, report := s.allergens.Filter(ctx, found, allergies)
	metrics.RecordFiltered("allergen", len(found)-len(safe))
	dietSafe := filter.FilterDiet(safe, prefs.DietRules)
	metrics.RecordFiltered("diet", len(safe)-len(dietSafe))

	candidates, relaxed := dietSafe, false
	if len(candidates) == 0 {
		candidates, relaxed = found, true
	}

	ranked := ranking.Rank(candidates, prefs, report)
	if len(ranked) == 0 {
		return s.fallback(group, r, relaxReply, score, strat), nil
	}

	notes := map[string]any{
		"strategy":       strat.String(),
		"allergies":      allergies,
		"diet_rules":     prefs.DietRules,
		"relaxed":        relaxed,
		"allergen_debug": report,
		"harmony_label":  harmony.Label(score),
	}
	if recent := s.recentMessages(in.UserID); len(recent) > 0 {
		notes["user_context"] = recent
	}
	if strat == strategy.Conflict {
		best, fit := harmony.SelectCompromise(ranking.Restaurants(ranked, 0), r.state.GroupVector())
		if best != nil {
			notes["conflict"] = true
			notes["best_compromise_name"] = best.Title
			notes["best_compromise_fit"] = math.Round(fit*100) / 100
		}
	}

	text, err := s.replier.Reply(ctx, group, llm.ReplyRequest{
		Message:     in.Message,
		Prefs:       prefs,
		Restaurants: ranked,
		Notes:       notes,
	})
	if err != nil {
		return Reply{}, err
	}

	top := ranked
	if len(top) > replyTopN {
		top = top[:replyTopN]
	}
	s.push(group, r, botMessage(text, &score, ranking.Restaurants(top, 0)))

	s.logger.Info("recommendation sent",
		"group", group,
		"user_id", in.UserID,
		"strategy", strat,
		"harmony", score,
		"candidates", len(found),
		"ranked", len(ranked),
		"relaxed", relaxed,
	)

	return Reply{Text: text, Harmony: &score, Restaurants: top, Strategy: strat}, nil
}

func (s *Service) fallback(group string, r *room, text string, score float64, strat strategy.Strategy) Reply {
	s.push(group, r, botMessage(text, &score, []models.Restaurant{}))
	return Reply{Text: text, Harmony: &score, Restaurants: []ranking.Ranked{}, Strategy: strat}
}

func groupName(group string) string {
	if group = strings.TrimSpace(group); group == "" {
		return DefaultGroup
	}
	return group
}
