package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/aimeeyu8/Tastebuddy/filter"
	"github.com/aimeeyu8/Tastebuddy/llm"
	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/aimeeyu8/Tastebuddy/strategy"
)

type fakeExtractor struct {
	prefs map[string]models.PreferenceRecord
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, text string) (models.PreferenceRecord, error) {
	f.calls++
	if f.err != nil {
		return models.PreferenceRecord{}, f.err
	}
	return f.prefs[text], nil
}

type searchCall struct {
	term, location string
	limit          int
}

type fakeSearcher struct {
	results []models.Restaurant
	err     error
	calls   []searchCall
}

func (f *fakeSearcher) Search(_ context.Context, term, location string, limit int) ([]models.Restaurant, error) {
	f.calls = append(f.calls, searchCall{term, location, limit})
	return f.results, f.err
}

type fakeReplier struct {
	mu       sync.Mutex
	requests []llm.ReplyRequest
	forgot   []string
	err      error
}

func (f *fakeReplier) Reply(_ context.Context, _ string, req llm.ReplyRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("try %s", req.Restaurants[0].Title), nil
}

func (f *fakeReplier) Forget(_ context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgot = append(f.forgot, groupID)
	return nil
}

func (f *fakeReplier) last() llm.ReplyRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeLog struct {
	appended map[string][]string
	forgot   []string
}

func (f *fakeLog) Append(userID, message string) error {
	if f.appended == nil {
		f.appended = make(map[string][]string)
	}
	f.appended[userID] = append(f.appended[userID], message)
	return nil
}

func (f *fakeLog) Get(userID string) []string {
	return f.appended[userID]
}

func (f *fakeLog) Forget(userIDs ...string) error {
	f.forgot = append(f.forgot, userIDs...)
	return nil
}

type fakePublisher struct {
	messages    int
	preferences int
	resets      []string
}

func (f *fakePublisher) PublishMessage(string, models.ChatMessage) error {
	f.messages++
	return nil
}

func (f *fakePublisher) PublishPreferences(string, string, models.PreferenceRecord, float64) error {
	f.preferences++
	return nil
}

func (f *fakePublisher) PublishReset(group string) error {
	f.resets = append(f.resets, group)
	return errors.New("nats down")
}

func restaurant(title, price string, categories ...string) models.Restaurant {
	return models.Restaurant{
		ID:         strings.ToLower(title),
		Title:      title,
		Price:      price,
		Categories: categories,
		Rating:     4.5,
	}
}

func thaiPlaces(n int) []models.Restaurant {
	out := make([]models.Restaurant, n)
	for i := range out {
		out[i] = restaurant(fmt.Sprintf("Thai %d", i), "$", "Thai")
	}
	return out
}

var (
	thaiPrefs  = models.PreferenceRecord{Cuisines: []string{"Thai"}, PriceLevels: []int{1}, Allergies: []string{"peanut"}}
	steakPrefs = models.PreferenceRecord{Cuisines: []string{"steakhouse"}, PriceLevels: []int{4}}
)

type fixture struct {
	svc       *Service
	extractor *fakeExtractor
	searcher  *fakeSearcher
	replier   *fakeReplier
	log       *fakeLog
	publisher *fakePublisher
}

func newFixture(th strategy.Thresholds) *fixture {
	f := &fixture{
		extractor: &fakeExtractor{prefs: map[string]models.PreferenceRecord{
			"thai please":  thaiPrefs,
			"thai again":   thaiPrefs,
			"steak!":       steakPrefs,
			"hello":        {},
			"@TasteBuddy?": thaiPrefs,
		}},
		searcher:  &fakeSearcher{results: thaiPlaces(7)},
		replier:   &fakeReplier{},
		log:       &fakeLog{},
		publisher: &fakePublisher{},
	}
	f.svc = NewService(f.extractor, f.searcher, filter.NewAllergenFilter(nil, 0, 0, nil), f.replier, Options{
		Thresholds:      th,
		DefaultLocation: "New York City",
		Log:             f.log,
		Publisher:       f.publisher,
	})
	return f
}

func (f *fixture) send(t *testing.T, group, userID, name, text string) Reply {
	t.Helper()
	reply, err := f.svc.HandleMessage(context.Background(), group, Input{UserID: userID, UserName: name, Message: text})
	if err != nil {
		t.Fatalf("handle %q failed: %v", text, err)
	}
	return reply
}

func TestHandleMessageValidation(t *testing.T) {
	f := newFixture(strategy.Thresholds{})

	if _, err := f.svc.HandleMessage(context.Background(), "", Input{Message: "hi"}); !errors.Is(err, ErrMissingUser) {
		t.Errorf("expected ErrMissingUser, got %v", err)
	}
	if _, err := f.svc.HandleMessage(context.Background(), "", Input{UserID: "u1", Message: "   "}); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if len(f.svc.History("")) != 0 {
		t.Error("expected rejected messages to stay out of the transcript")
	}
}

func TestHandleMessageDirect(t *testing.T) {
	f := newFixture(strategy.Thresholds{})

	reply := f.send(t, "", "u1", "", "thai please")

	if reply.Strategy != strategy.Direct {
		t.Errorf("expected Direct, got %s", reply.Strategy)
	}
	if reply.Text != "try Thai 0" {
		t.Errorf("unexpected reply %q", reply.Text)
	}
	if reply.Harmony == nil || *reply.Harmony != 1.0 {
		t.Errorf("expected harmony 1.0 for a lone member, got %v", reply.Harmony)
	}
	if len(reply.Restaurants) != replyTopN {
		t.Errorf("expected %d restaurants, got %d", replyTopN, len(reply.Restaurants))
	}

	want := searchCall{"thai", "New York City", DefaultSearchLimit}
	if len(f.searcher.calls) != 1 || f.searcher.calls[0] != want {
		t.Errorf("expected search %+v, got %+v", want, f.searcher.calls)
	}

	history := f.svc.History(DefaultGroup)
	if len(history) != 2 {
		t.Fatalf("expected user and bot messages, got %d", len(history))
	}
	if history[0].Sender != guestName || history[0].Text != "thai please" {
		t.Errorf("unexpected user message %+v", history[0])
	}
	if history[1].Sender != models.SenderBot || history[1].Harmony == nil || len(history[1].Restaurants) != replyTopN {
		t.Errorf("unexpected bot message %+v", history[1])
	}

	notes := f.replier.last().Notes
	if notes["strategy"] != "Direct" || notes["relaxed"] != false {
		t.Errorf("unexpected notes %v", notes)
	}
	if _, ok := notes["best_compromise_name"]; ok {
		t.Error("expected no compromise outside Conflict")
	}

	if got := f.log.appended["u1"]; len(got) != 1 || got[0] != "thai please" {
		t.Errorf("expected message logged, got %v", got)
	}
	if got, _ := notes["user_context"].([]string); len(got) != 1 || got[0] != "thai please" {
		t.Errorf("expected the sender's logged messages as context, got %v", notes["user_context"])
	}
	if f.publisher.messages != 2 || f.publisher.preferences != 1 {
		t.Errorf("expected 2 message and 1 preference events, got %d and %d", f.publisher.messages, f.publisher.preferences)
	}
}

func TestHandleMessageNoResults(t *testing.T) {
	f := newFixture(strategy.Thresholds{})
	f.searcher.results = nil

	reply := f.send(t, "", "u1", "Ana", "thai please")

	if reply.Text != noPlacesReply {
		t.Errorf("expected no-places fallback, got %q", reply.Text)
	}
	if len(f.replier.requests) != 0 {
		t.Error("expected no reply generation")
	}
	if reply.Harmony == nil || len(reply.Restaurants) != 0 {
		t.Errorf("expected harmony and no restaurants, got %+v", reply)
	}
}

func TestHandleMessageRelaxesWhenEverythingFiltered(t *testing.T) {
	f := newFixture(strategy.Thresholds{})
	risky := restaurant("Peanut Shack", "$", "Thai")
	risky.ReviewHighlights = []string{"amazing peanut sauce", "peanut noodles"}
	f.searcher.results = []models.Restaurant{risky}

	reply := f.send(t, "", "u1", "Ana", "thai please")

	if len(reply.Restaurants) != 1 || reply.Restaurants[0].Title != "Peanut Shack" {
		t.Fatalf("expected the relaxed candidate, got %+v", reply.Restaurants)
	}
	notes := f.replier.last().Notes
	if notes["relaxed"] != true {
		t.Errorf("expected relaxed, got %v", notes["relaxed"])
	}
	report, ok := notes["allergen_debug"].(filter.AllergenReport)
	if !ok || !report["Peanut Shack"].Blocked {
		t.Errorf("expected blocked finding in report, got %v", notes["allergen_debug"])
	}
}

func TestHandleMessageSearchError(t *testing.T) {
	f := newFixture(strategy.Thresholds{})
	f.searcher.err = errors.New("upstream 503")

	if _, err := f.svc.HandleMessage(context.Background(), "", Input{UserID: "u1", Message: "thai please"}); err == nil {
		t.Error("expected error")
	}
}

func TestHandleMessageConflict(t *testing.T) {
	f := newFixture(strategy.Thresholds{})

	if first := f.send(t, "g", "a", "Ana", "thai please"); first.Strategy != strategy.Direct {
		t.Fatalf("expected Direct for a lone member, got %s", first.Strategy)
	}
	reply := f.send(t, "g", "b", "Ben", "steak!")

	// the sender's own preferences count on the turn that states them
	if reply.Strategy != strategy.Conflict {
		t.Fatalf("expected Conflict, got %s", reply.Strategy)
	}
	notes := f.replier.last().Notes
	if notes["conflict"] != true {
		t.Errorf("expected conflict note, got %v", notes)
	}
	if name, _ := notes["best_compromise_name"].(string); !strings.HasPrefix(name, "Thai") {
		t.Errorf("expected a compromise among the candidates, got %v", notes["best_compromise_name"])
	}
	if _, ok := notes["best_compromise_fit"].(float64); !ok {
		t.Errorf("expected a compromise fit, got %v", notes["best_compromise_fit"])
	}
}

func TestHandleMessageEncouragement(t *testing.T) {
	f := newFixture(strategy.Thresholds{})

	f.send(t, "", "b", "Bea", "thai please")
	for i := 0; i < 4; i++ {
		if r := f.send(t, "", "a", "Ana", "thai again"); r.Strategy != strategy.Direct {
			t.Fatalf("message %d: expected Direct, got %s", i, r.Strategy)
		}
	}
	before := len(f.replier.requests)

	reply := f.send(t, "", "a", "Ana", "thai again")

	if reply.Strategy != strategy.Encouragement {
		t.Fatalf("expected Encouragement, got %s", reply.Strategy)
	}
	if reply.Text != "Hey Bea, we'd love your input too!" {
		t.Errorf("unexpected reply %q", reply.Text)
	}
	if len(f.replier.requests) != before {
		t.Error("expected no reply generation for encouragement")
	}
}

func TestHandleMessageEncouragementCommitsPreferences(t *testing.T) {
	f := newFixture(strategy.Thresholds{})

	for i := 0; i < 5; i++ {
		f.send(t, "", "a", "Ana", "thai again")
	}

	reply := f.send(t, "", "b", "Bea", "thai please")

	if reply.Strategy != strategy.Encouragement {
		t.Fatalf("expected Encouragement, got %s", reply.Strategy)
	}
	prefs, ok := f.svc.room("").state.Preferences("b")
	if !ok {
		t.Fatal("expected preferences for b after an encouragement turn")
	}
	if len(prefs.Cuisines) != 1 || prefs.Cuisines[0] != "Thai" {
		t.Errorf("unexpected preferences for b %+v", prefs)
	}
	if reply.Harmony == nil || *reply.Harmony != 1.0 {
		t.Errorf("expected harmony 1.0 for matching members, got %v", reply.Harmony)
	}
	if f.publisher.preferences != 6 {
		t.Errorf("expected 6 preference events, got %d", f.publisher.preferences)
	}
}

func TestHandleMessageExtractionError(t *testing.T) {
	f := newFixture(strategy.Thresholds{})
	f.extractor.err = errors.New("ollama down")

	_, err := f.svc.HandleMessage(context.Background(), "", Input{UserID: "u1", Message: "thai please"})
	if !errors.Is(err, f.extractor.err) {
		t.Fatalf("expected the extractor error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to extract preferences") {
		t.Errorf("expected a wrapped error, got %q", err.Error())
	}
	if _, ok := f.svc.room("").state.Preferences("u1"); ok {
		t.Error("expected nothing committed")
	}
	if len(f.searcher.calls) != 0 {
		t.Error("expected no search after a failed extraction")
	}
}

func TestHandleMessageMentionOverridesEncouragement(t *testing.T) {
	f := newFixture(strategy.Thresholds{})

	f.send(t, "", "b", "Bea", "thai please")
	for i := 0; i < 4; i++ {
		f.send(t, "", "a", "Ana", "thai again")
	}

	if reply := f.send(t, "", "a", "Ana", "@TasteBuddy?"); reply.Strategy != strategy.Direct {
		t.Errorf("expected mention to force Direct, got %s", reply.Strategy)
	}
}

func TestHandleMessageSummary(t *testing.T) {
	f := newFixture(strategy.Thresholds{})

	for i := 0; i < 6; i++ {
		f.send(t, "", "u1", "Ana", "hello")
	}
	reply := f.send(t, "", "u1", "Ana", "hello")

	if reply.Strategy != strategy.Summary {
		t.Fatalf("expected Summary, got %s", reply.Strategy)
	}
	lines := strings.Split(reply.Text, "\n")
	if lines[0] != summaryHeader {
		t.Errorf("expected summary header, got %q", lines[0])
	}
	if len(lines) != summaryWindow+1 {
		t.Errorf("expected %d summarized lines, got %d", summaryWindow, len(lines)-1)
	}
	if lines[len(lines)-1] != "Ana: hello" {
		t.Errorf("expected the triggering message last, got %q", lines[len(lines)-1])
	}

	if next := f.send(t, "", "u1", "Ana", "hello"); next.Strategy != strategy.Direct {
		t.Errorf("expected Direct after the summary turn, got %s", next.Strategy)
	}
}

func TestHandleMessageSilentDefault(t *testing.T) {
	th := strategy.DefaultThresholds()
	th.Default = strategy.Silent
	f := newFixture(th)

	reply := f.send(t, "", "u1", "Ana", "thai please")

	if reply.Strategy != strategy.Silent || reply.Text != "" {
		t.Errorf("expected a silent turn, got %+v", reply)
	}
	if reply.Harmony == nil {
		t.Error("expected preferences to be committed")
	}
	if len(f.searcher.calls) != 0 || len(f.replier.requests) != 0 {
		t.Error("expected no search or reply on a silent turn")
	}
	if len(f.svc.History("")) != 1 {
		t.Error("expected only the user message in the transcript")
	}
}

func TestGroupsAreIndependent(t *testing.T) {
	f := newFixture(strategy.Thresholds{})

	f.svc.Join("a", "Ana")
	f.send(t, "a", "u1", "Ana", "thai please")
	f.svc.Join("b", "")

	if got := len(f.svc.History("a")); got != 3 {
		t.Errorf("expected 3 messages in a, got %d", got)
	}
	hb := f.svc.History("b")
	if len(hb) != 1 || hb[0].Text != "Unknown joined the chat" || hb[0].Sender != models.SenderSystem {
		t.Errorf("unexpected history for b: %+v", hb)
	}
}

func TestReset(t *testing.T) {
	f := newFixture(strategy.Thresholds{})
	var seen []string
	f.svc.OnMessage(func(group string, msg models.ChatMessage) {
		seen = append(seen, group+":"+msg.Sender)
	})

	f.send(t, "g", "a", "Ana", "thai please")
	f.send(t, "g", "b", "Ben", "steak!")

	if err := f.svc.Reset(context.Background(), "g"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if len(f.svc.History("g")) != 0 {
		t.Error("expected empty transcript after reset")
	}
	if strings.Join(f.log.forgot, ",") != "a,b" {
		t.Errorf("expected members forgotten in arrival order, got %v", f.log.forgot)
	}
	if len(f.replier.forgot) != 1 || f.replier.forgot[0] != "g" {
		t.Errorf("expected reply memory forgotten for g, got %v", f.replier.forgot)
	}
	if len(f.publisher.resets) != 1 {
		t.Errorf("expected one reset event, got %v", f.publisher.resets)
	}
	if len(seen) != 4 || seen[0] != "g:Ana" || seen[1] != "g:"+models.SenderBot {
		t.Errorf("unexpected listener calls %v", seen)
	}

	if reply := f.send(t, "g", "b", "Ben", "steak!"); reply.Harmony == nil || *reply.Harmony != 1.0 {
		t.Errorf("expected a fresh group after reset, got %+v", reply.Harmony)
	}
}

func TestFollowSeesBacklog(t *testing.T) {
	f := newFixture(strategy.Thresholds{})
	f.svc.Join("g", "Ana")

	var backlog []models.ChatMessage
	f.svc.Follow("g", func(msgs []models.ChatMessage) { backlog = msgs })

	if len(backlog) != 1 || backlog[0].Text != "Ana joined the chat" {
		t.Errorf("unexpected backlog %+v", backlog)
	}
}
