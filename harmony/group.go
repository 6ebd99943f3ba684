package harmony

import (
	"sort"

	"github.com/aimeeyu8/Tastebuddy/models"
)

// Snapshot maps user id to that user's committed preferences.
type Snapshot map[string]models.PreferenceRecord

// GroupState is the shared state of one chat group: committed preferences,
// activity counters and the bot turn marker. It is not safe for concurrent
// use; the owner serializes access.
type GroupState struct {
	prefs        Snapshot
	freq         map[string]int
	length       map[string]int
	participants map[string]string
	joined       []string
	lastBotTurn  int
}

func NewGroupState() *GroupState {
	g := &GroupState{}
	g.Reset()
	return g
}

// Reset clears preferences, counters, participants and the bot turn marker.
func (g *GroupState) Reset() {
	g.prefs = make(Snapshot)
	g.freq = make(map[string]int)
	g.length = make(map[string]int)
	g.participants = make(map[string]string)
	g.joined = nil
	g.lastBotTurn = 0
}

// Touch records one message of msgLen bytes from userID.
func (g *GroupState) Touch(userID, name string, msgLen int) {
	if _, ok := g.freq[userID]; !ok {
		g.joined = append(g.joined, userID)
	}
	if name != "" {
		g.participants[userID] = name
	}
	g.freq[userID]++
	g.length[userID] += msgLen
}

// Commit replaces userID's preferences with p.
func (g *GroupState) Commit(userID string, p models.PreferenceRecord) {
	g.prefs[userID] = p
}

// CommitAndScore commits p and returns userID's harmony against the updated
// group.
func (g *GroupState) CommitAndScore(userID string, p models.PreferenceRecord) float64 {
	g.Commit(userID, p)
	return Score(userID, p, g.prefs)
}

// Preferences returns the committed record for userID.
func (g *GroupState) Preferences(userID string) (models.PreferenceRecord, bool) {
	p, ok := g.prefs[userID]
	return p, ok
}

// Snapshot returns a copy of the committed preferences.
func (g *GroupState) Snapshot() Snapshot {
	snap := make(Snapshot, len(g.prefs))
	for id, p := range g.prefs {
		snap[id] = p
	}
	return snap
}

// Members returns the ids with committed preferences, sorted.
func (g *GroupState) Members() []string {
	ids := make([]string, 0, len(g.prefs))
	for id := range g.prefs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Frequency returns how many messages userID has sent.
func (g *GroupState) Frequency(userID string) int {
	return g.freq[userID]
}

// Length returns the cumulative message length for userID.
func (g *GroupState) Length(userID string) int {
	return g.length[userID]
}

// Participants returns every user that has sent a message, in arrival order.
func (g *GroupState) Participants() []string {
	out := make([]string, len(g.joined))
	copy(out, g.joined)
	return out
}

// DisplayName returns the last name userID sent with, or fallback.
func (g *GroupState) DisplayName(userID, fallback string) string {
	if name, ok := g.participants[userID]; ok {
		return name
	}
	return fallback
}

// AverageFrequency is the mean message count per participant, 0 when nobody
// has spoken.
func (g *GroupState) AverageFrequency() float64 {
	if len(g.freq) == 0 {
		return 0
	}
	return float64(g.TotalMessages()) / float64(len(g.freq))
}

// Lurkers returns participants whose message count is below ratio times the
// group average, in arrival order.
func (g *GroupState) Lurkers(ratio float64) []string {
	avg := g.AverageFrequency()
	if avg == 0 {
		return nil
	}
	var out []string
	for _, id := range g.joined {
		if float64(g.freq[id]) < ratio*avg {
			out = append(out, id)
		}
	}
	return out
}

// TotalMessages counts every message tracked by Touch.
func (g *GroupState) TotalMessages() int {
	var total int
	for _, n := range g.freq {
		total += n
	}
	return total
}

// MarkBotTurn records that the bot just took a turn.
func (g *GroupState) MarkBotTurn() {
	g.lastBotTurn = g.TotalMessages()
}

// MessagesSinceBotTurn counts messages since the last MarkBotTurn.
func (g *GroupState) MessagesSinceBotTurn() int {
	return g.TotalMessages() - g.lastBotTurn
}

// GroupVector averages the vectors of every committed member.
func (g *GroupState) GroupVector() Vector {
	vs := make([]Vector, 0, len(g.prefs))
	for _, id := range g.Members() {
		vs = append(vs, Vectorize(g.prefs[id]))
	}
	return Mean(vs)
}
