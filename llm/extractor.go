package llm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/goccy/go-json"
	"github.com/tmc/langchaingo/llms"
)

const extractTemperature = 0.2

// Extractor turns a free text chat message into a PreferenceRecord.
type Extractor struct {
	model           llms.Model
	defaultLocation string
	logger          *slog.Logger
}

func NewExtractor(model llms.Model, defaultLocation string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		model:           model,
		defaultLocation: defaultLocation,
		logger:          logger,
	}
}

// Extract asks the model for preferences, then corrects the price from
// keywords in text and fills in defaults. Fields the model leaves out stay
// empty.
func (e *Extractor) Extract(ctx context.Context, text string) (models.PreferenceRecord, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(PreferenceSysPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	content, err := e.model.GenerateContent(
		ctx,
		messages,
		llms.WithJSONMode(),
		llms.WithTemperature(extractTemperature),
	)
	if err != nil {
		e.logger.Error("preference extraction failed", "error", err)
		return models.PreferenceRecord{}, fmt.Errorf("failed to extract preferences: %w", err)
	}

	var parsed rawPreferences
	if len(content.Choices) > 0 {
		payload := stripCodeFence(content.Choices[0].Content)
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			e.logger.Warn("model returned invalid preference json", "error", err, "payload", payload)
			parsed = rawPreferences{}
		}
	}

	rec := models.PreferenceRecord{
		Cuisines:    parsed.Cuisine,
		PriceLevels: parsed.Price.levels,
		Allergies:   models.NormalizeAllergies(parsed.Allergies),
		Location:    strings.TrimSpace(parsed.Location),
		DietRules:   trimAll(parsed.Diet),
		Mood:        strings.TrimSpace(parsed.Mood),
		Dislikes:    trimAll(parsed.Dislikes),
	}

	if levels := priceFromKeywords(text); levels != nil {
		rec.PriceLevels = levels
	}
	if rec.Location == "" {
		rec.Location = e.defaultLocation
	}

	return rec, nil
}

// rawPreferences mirrors what the model returns. Every field tolerates either
// a single value or a list.
type rawPreferences struct {
	Cuisine   stringList `json:"cuisine"`
	Price     priceField `json:"price"`
	Allergies stringList `json:"allergies"`
	Location  string     `json:"location"`
	Mood      string     `json:"mood"`
	Dislikes  stringList `json:"dislikes"`
	Diet      stringList `json:"diet"`
}

type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = splitList(one)
		return nil
	}

	var many []any
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	out := make([]string, 0, len(many))
	for _, v := range many {
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			out = append(out, str)
		}
	}
	*s = out
	return nil
}

// priceField accepts "2", "1,2", "$$", 2 or [1,2].
type priceField struct {
	levels []int
}

func (p *priceField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		p.levels = models.ParsePriceLevels(s)
	case '[':
		var many []any
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		parts := make([]string, 0, len(many))
		for _, v := range many {
			parts = append(parts, fmt.Sprint(v))
		}
		p.levels = models.ParsePriceLevels(strings.Join(parts, ","))
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil
		}
		p.levels = models.ParsePriceLevels(strconv.Itoa(int(n)))
	}
	return nil
}

var (
	cheapWords     = []string{"cheap", "affordable", "inexpensive", "budget"}
	moderateWords  = []string{"not too expensive", "moderate", "mid-range", "okay price"}
	expensiveWords = []string{"expensive", "fancy", "pricey", "high-end"}
)

// priceFromKeywords overrides the model's price when the message itself says
// how much people want to spend. It returns nil when nothing matches.
func priceFromKeywords(text string) []int {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, cheapWords):
		return []int{1}
	case containsAny(t, moderateWords):
		return []int{2}
	case containsAny(t, expensiveWords):
		return []int{3, 4}
	case strings.Contains(t, "$$$$"):
		return []int{4}
	case strings.Contains(t, "$$$"):
		return []int{3}
	case strings.Contains(t, "$$"):
		return []int{2}
	case strings.Contains(t, "$"):
		return []int{1}
	}
	return nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stripCodeFence removes a markdown fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
