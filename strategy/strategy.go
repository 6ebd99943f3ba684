package strategy

import (
	"fmt"
	"strings"

	"github.com/aimeeyu8/Tastebuddy/harmony"
)

// Strategy is the conversational mode for one bot turn.
type Strategy string

const (
	Direct        Strategy = "Direct"
	Conflict      Strategy = "Conflict"
	Encouragement Strategy = "Encouragement"
	Summary       Strategy = "Summary"
	Silent        Strategy = "Silent"
)

func (s Strategy) String() string {
	return string(s)
}

// ParseStrategy accepts a strategy name in any case.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range []Strategy{Direct, Conflict, Encouragement, Summary, Silent} {
		if strings.EqualFold(strings.TrimSpace(name), string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", name)
}

// Thresholds tune Choose.
type Thresholds struct {
	// Conflict is the minimum member harmony below which the group is in
	// conflict.
	Conflict float64
	// LurkerRatio flags members below this fraction of the average message
	// count.
	LurkerRatio float64
	// SummaryAfter is the number of messages since the last bot turn after
	// which a summary is due.
	SummaryAfter int
	// Default is returned when no other rule fires.
	Default Strategy
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Conflict:     0.4,
		LurkerRatio:  0.4,
		SummaryAfter: 6,
		Default:      Direct,
	}
}

// Choose picks the strategy for the next turn. Rules are checked in priority
// order and the first match wins: explicit mention, conflict, lurkers,
// pending summary, then th.Default. It reads g and never modifies it.
func Choose(g *harmony.GroupState, explicitMention bool, th Thresholds) Strategy {
	def := th.Default
	if def == "" {
		def = Direct
	}

	if explicitMention {
		return Direct
	}
	if g == nil {
		return def
	}

	if members := g.Members(); len(members) > 1 {
		if MinHarmony(g) < th.Conflict {
			return Conflict
		}
	}

	if len(g.Lurkers(th.LurkerRatio)) > 0 {
		return Encouragement
	}

	if g.MessagesSinceBotTurn() > th.SummaryAfter {
		return Summary
	}

	return def
}

// MinHarmony is the lowest harmony of any committed member against the rest
// of the group, 1.0 for fewer than two members.
func MinHarmony(g *harmony.GroupState) float64 {
	snap := g.Snapshot()
	lowest := 1.0
	for id, rec := range snap {
		if s := harmony.Score(id, rec, snap); s < lowest {
			lowest = s
		}
	}
	return lowest
}
