package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultPath = "./config/config.yaml"

type Postgres struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"database"`
	SSLMode  string        `mapstructure:"sslmode"`
	CacheTTL time.Duration `mapstructure:"cacheTTL"`
}

func (p Postgres) ConnStr() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s", p.Host, p.User, p.Password, p.DBName, p.Port, p.SSLMode)
}

type Nats struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host"`
	Port               string `mapstructure:"port"`
	Stream             string `mapstructure:"stream"`
	MessagesSubject    string `mapstructure:"messagesSubject"`
	PreferencesSubject string `mapstructure:"preferencesSubject"`
	ResetSubject       string `mapstructure:"resetSubject"`
	InboundSubject     string `mapstructure:"inboundSubject"`
	Workers            int    `mapstructure:"workers"`
	QueueSize          int    `mapstructure:"queueSize"`
}

func (n Nats) ConnStr() string {
	return fmt.Sprintf("nats://%s:%s", n.Host, n.Port)
}

// Subjects lists every subject the stream has to capture.
func (n Nats) Subjects() []string {
	return []string{n.MessagesSubject, n.PreferencesSubject, n.ResetSubject, n.InboundSubject}
}

type LLM struct {
	Provider     string `mapstructure:"provider"` // ollama | openai
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	ParserModel  string `mapstructure:"parserModel"`
	ContextModel string `mapstructure:"contextModel"`
	OpenAIKey    string `mapstructure:"openaiKey"`
}

func (l *LLM) Address() string {
	return fmt.Sprintf("http://%s:%s", l.Host, l.Port)
}

type SerpAPI struct {
	APIKey        string        `mapstructure:"apiKey"`
	BaseURL       string        `mapstructure:"baseURL"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"ratePerSecond"`
	Burst         int           `mapstructure:"burst"`
	SearchLimit   int           `mapstructure:"searchLimit"`
}

type Server struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type History struct {
	Path   string `mapstructure:"path"`
	ChatDB string `mapstructure:"chatDB"`
}

type Harmony struct {
	ConflictThreshold float64 `mapstructure:"conflictThreshold"`
	LurkerRatio       float64 `mapstructure:"lurkerRatio"`
	SummaryAfter      int     `mapstructure:"summaryAfter"`
	DefaultStrategy   string  `mapstructure:"defaultStrategy"`
	Mention           string  `mapstructure:"mention"`
}

type Filter struct {
	AllergenThreshold float64 `mapstructure:"allergenThreshold"`
	MenuConcurrency   int     `mapstructure:"menuConcurrency"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Postgres        Postgres `mapstructure:"postgres"`
	Nats            Nats     `mapstructure:"nats"`
	LLM             LLM      `mapstructure:"llm"`
	SerpAPI         SerpAPI  `mapstructure:"serpapi"`
	Server          Server   `mapstructure:"server"`
	History         History  `mapstructure:"history"`
	Harmony         Harmony  `mapstructure:"harmony"`
	Filter          Filter   `mapstructure:"filter"`
	Log             Log      `mapstructure:"log"`
	DefaultLocation string   `mapstructure:"defaultLocation"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.host", "localhost")
	v.SetDefault("llm.port", "11434")
	v.SetDefault("llm.parserModel", "llama3.1")
	v.SetDefault("llm.contextModel", "llama3.1")
	v.SetDefault("llm.openaiKey", "")

	v.SetDefault("serpapi.apiKey", "")
	v.SetDefault("serpapi.baseURL", "https://serpapi.com/search.json")
	v.SetDefault("serpapi.timeout", 20*time.Second)
	v.SetDefault("serpapi.ratePerSecond", 2.0)
	v.SetDefault("serpapi.burst", 4)
	v.SetDefault("serpapi.searchLimit", 12)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "tastebuddy")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.cacheTTL", 6*time.Hour)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", "4222")
	v.SetDefault("nats.stream", "TASTEBUDDY")
	v.SetDefault("nats.messagesSubject", "tastebuddy.chat.message")
	v.SetDefault("nats.preferencesSubject", "tastebuddy.chat.preferences")
	v.SetDefault("nats.resetSubject", "tastebuddy.chat.reset")
	v.SetDefault("nats.inboundSubject", "tastebuddy.chat.inbound")
	v.SetDefault("nats.workers", 1)
	v.SetDefault("nats.queueSize", 100)

	v.SetDefault("history.path", "data/conversation_memory.json")
	v.SetDefault("history.chatDB", "chat_history.db")

	v.SetDefault("harmony.conflictThreshold", 0.4)
	v.SetDefault("harmony.lurkerRatio", 0.4)
	v.SetDefault("harmony.summaryAfter", 6)
	v.SetDefault("harmony.defaultStrategy", "Direct")
	v.SetDefault("harmony.mention", "@tastebuddy")

	v.SetDefault("filter.allergenThreshold", 0.3)
	v.SetDefault("filter.menuConcurrency", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("defaultLocation", "New York City")
}

// Load reads the YAML file at path and overlays the environment on top of it.
// A missing file falls back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range map[string]string{
		"serpapi.apiKey": "SERPAPI_API_KEY",
		"llm.openaiKey":  "OPENAI_API_KEY",
		"log.level":      "LOG_LEVEL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &config, nil
}
