// Package core provides the configuration, errors and shared domain types of PowerPersona.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config contains the complete configuration for running one persona.
//
// It includes settings for:
//   - Persona runtime behaviour (cadence, randomness, routines)
//   - LLM provider (generation ports)
//   - Embedding provider (memory store vectors)
//   - Document store (memory persistence)
//   - Message board and logging
//
// Always start from DefaultConfig so that boolean switches and probabilities
// carry their documented defaults:
//
//	cfg := core.DefaultConfig()
//	cfg.LLM.Provider = "ollama"
//	cfg.LLM.Model = "llama3:8b"
//	cfg.Embedder.Provider = "hash"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// Persona contains the runtime configuration.
	Persona PersonaConfig `json:"persona" yaml:"persona"`

	// LLM contains LLM provider configuration.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder" yaml:"embedder"`

	// Store contains memory persistence configuration.
	Store StoreConfig `json:"store" yaml:"store"`

	// Board contains message board configuration.
	Board BoardConfig `json:"board" yaml:"board"`

	// Log contains logging configuration.
	Log LogConfig `json:"log" yaml:"log"`
}

// PersonaConfig controls the persona runtime.
//
// Durations are expressed in seconds. PlanInterval and MemoryInterval accept
// 0 (randomised default cadence) or -1 (routine disabled).
type PersonaConfig struct {
	// ChannelID is the channel monitored at start. When zero or unknown to the
	// board a random channel is picked.
	ChannelID int64 `json:"channel_id" yaml:"channel_id"`

	// BasePlan is the plan used until the plan routine produces one.
	// Default: "Responding to every message."
	BasePlan string `json:"base_plan" yaml:"base_plan"`

	// SequentialMode disables every randomised branch of the respond routine.
	SequentialMode bool `json:"sequential_mode" yaml:"sequential_mode"`

	// MessageThrottle is the fixed pause after a respond tick that did work. Default: 10
	MessageThrottle float64 `json:"message_throttle" yaml:"message_throttle"`

	// MaxRandomResponseDelay is the upper bound of the random pause added to
	// MessageThrottle. Default: 5
	MaxRandomResponseDelay float64 `json:"max_random_response_delay" yaml:"max_random_response_delay"`

	// PollInterval is the pause after an idle respond tick. Default: 1
	PollInterval float64 `json:"poll_interval" yaml:"poll_interval"`

	// PlanInterval is the pause between plan routine wakes.
	PlanInterval float64 `json:"plan_interval" yaml:"plan_interval"`

	// MemoryInterval is the pause between memory routine wakes.
	MemoryInterval float64 `json:"memory_interval" yaml:"memory_interval"`

	// PlanStartJitter is the upper bound of the random delay before the first
	// plan wake. Default: 180
	PlanStartJitter float64 `json:"plan_start_jitter" yaml:"plan_start_jitter"`

	// MemoryStartJitter is the upper bound of the random delay before the first
	// memory wake. Default: 180
	MemoryStartJitter float64 `json:"memory_start_jitter" yaml:"memory_start_jitter"`

	// Plans enables the plan routine. Default: true
	Plans bool `json:"plans" yaml:"plans"`

	// Memories enables the memory routine. Default: true
	Memories bool `json:"memories" yaml:"memories"`

	// IdleThreshold is how long the monitored channel may stay quiet before the
	// persona initiates a topic. Default: 300
	IdleThreshold float64 `json:"idle_threshold" yaml:"idle_threshold"`

	// ChannelSwitchProbability is the per-tick chance of moving to another channel. Default: 0.05
	ChannelSwitchProbability float64 `json:"channel_switch_probability" yaml:"channel_switch_probability"`

	// SelfTopicAbortProbability is the chance of not initiating a topic when the
	// persona wrote the last message of the channel. Default: 0.995
	SelfTopicAbortProbability float64 `json:"self_topic_abort_probability" yaml:"self_topic_abort_probability"`

	// TopicOnSwitch emits a new topic right after a channel switch. Default: true
	TopicOnSwitch bool `json:"topic_on_switch" yaml:"topic_on_switch"`

	// TraceOwnReplies forwards "[Me] <reply>" to the processed queue. Default: true
	TraceOwnReplies bool `json:"trace_own_replies" yaml:"trace_own_replies"`

	// PlanEvery gates the plan routine on memoryCount % PlanEvery == 0. Default: 6
	PlanEvery int `json:"plan_every" yaml:"plan_every"`

	// ReflectionBatch is the number of processed messages folded into one reflection. Default: 5
	ReflectionBatch int `json:"reflection_batch" yaml:"reflection_batch"`

	// LastMessages is how many of its own replies the persona remembers verbatim. Default: 5
	LastMessages int `json:"last_messages" yaml:"last_messages"`

	// SubstateWeights are the randomised weight ranges of the processing substates.
	SubstateWeights SubstateWeights `json:"substate_weights" yaml:"substate_weights"`

	// Timeouts bound every generation port call.
	Timeouts GenerationTimeouts `json:"timeouts" yaml:"timeouts"`
}

// WeightRange is an inclusive [Min, Max] range a substate weight is drawn from.
type WeightRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// SubstateWeights holds one weight range per processing substate.
type SubstateWeights struct {
	Batch    WeightRange `json:"batch" yaml:"batch"`
	Ignore   WeightRange `json:"ignore" yaml:"ignore"`
	OnlyRead WeightRange `json:"only_read" yaml:"only_read"`
}

// IsZero reports whether no range has been configured.
func (w SubstateWeights) IsZero() bool {
	return w == SubstateWeights{}
}

// GenerationTimeouts bounds generation port calls, in seconds.
type GenerationTimeouts struct {
	Summary    float64 `json:"summary" yaml:"summary"`
	Queries    float64 `json:"queries" yaml:"queries"`
	Reflection float64 `json:"reflection" yaml:"reflection"`
	Plan       float64 `json:"plan" yaml:"plan"`
	Response   float64 `json:"response" yaml:"response"`
}

// LLMConfig contains configuration for the LLM provider.
//
// Supported providers: openai, anthropic, ollama
type LLMConfig struct {
	// Provider is the LLM provider name.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the model name to use (e.g., "gpt-4o-mini", "llama3:8b").
	Model string `json:"model" yaml:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Temperature is the sampling temperature. Default: 0.7
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// MaxTokens caps generated tokens per call. Default: 300
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai, ollama, hash
type EmbedderConfig struct {
	// Provider is the embedding provider name.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the embedding model name.
	Model string `json:"model" yaml:"model"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors.
	Dimensions int `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`

	// CacheSize is the number of query embeddings kept in memory. -1 disables
	// the cache. Default: 1024
	CacheSize int `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
}

// StoreConfig contains configuration for memory persistence.
//
// Supported providers: sqlite, postgres, oceanbase
type StoreConfig struct {
	// Provider is the persistence backend.
	Provider string `json:"provider" yaml:"provider"`

	// PersistencePath is the directory holding per-persona SQLite files.
	PersistencePath string `json:"persistence_path" yaml:"persistence_path"`

	// PersistencePrefix is prepended to the archetype key to form the persistence id.
	PersistencePrefix string `json:"persistence_prefix" yaml:"persistence_prefix"`

	// MaxDocuments is the capacity of the memory store. Default: 500
	MaxDocuments int `json:"max_documents" yaml:"max_documents"`

	// Host, Port, User, Password, DBName and SSLMode configure network backends.
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DBName   string `json:"db_name,omitempty" yaml:"db_name,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`

	// Table overrides the table name. Network backends default to
	// "<persistence_id>_documents", SQLite to "documents".
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
}

// BoardConfig contains message board configuration.
type BoardConfig struct {
	// MessageWindow is the number of recent messages kept per channel. Default: 15
	MessageWindow int `json:"message_window" yaml:"message_window"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is a logrus level name. Default: "info"
	Level string `json:"level" yaml:"level"`

	// Format is "text" or "json". Default: "text"
	Format string `json:"format" yaml:"format"`

	// Path is the directory for log files. Empty means stderr only.
	Path string `json:"path" yaml:"path"`

	// SaveEvents records every generation call as JSON lines under Path.
	SaveEvents bool `json:"save_events" yaml:"save_events"`
}

// DefaultConfig returns a configuration with every documented default applied.
func DefaultConfig() *Config {
	return &Config{
		Persona: PersonaConfig{
			BasePlan:                  "Responding to every message.",
			MessageThrottle:           10,
			MaxRandomResponseDelay:    5,
			PollInterval:              1,
			PlanStartJitter:           180,
			MemoryStartJitter:         180,
			Plans:                     true,
			Memories:                  true,
			IdleThreshold:             300,
			ChannelSwitchProbability:  0.05,
			SelfTopicAbortProbability: 0.995,
			TopicOnSwitch:             true,
			TraceOwnReplies:           true,
			PlanEvery:                 6,
			ReflectionBatch:           5,
			LastMessages:              5,
			SubstateWeights:           DefaultSubstateWeights(),
			Timeouts:                  DefaultGenerationTimeouts(),
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3:8b",
			Temperature: 0.7,
			MaxTokens:   300,
		},
		Embedder: EmbedderConfig{
			Provider:  "ollama",
			Model:     "all-minilm",
			CacheSize: 1024,
		},
		Store: StoreConfig{
			Provider:        "sqlite",
			PersistencePath: "./data",
			MaxDocuments:    500,
		},
		Board: BoardConfig{
			MessageWindow: 15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultSubstateWeights returns ranges averaging to 0.90 / 0.025 / 0.075.
func DefaultSubstateWeights() SubstateWeights {
	return SubstateWeights{
		Batch:    WeightRange{Min: 0.85, Max: 0.95},
		Ignore:   WeightRange{Min: 0.0, Max: 0.05},
		OnlyRead: WeightRange{Min: 0.05, Max: 0.10},
	}
}

// DefaultGenerationTimeouts returns the default port timeouts in seconds.
func DefaultGenerationTimeouts() GenerationTimeouts {
	return GenerationTimeouts{
		Summary:    120,
		Queries:    120,
		Reflection: 180,
		Plan:       120,
		Response:   120,
	}
}

// ApplyDefaults fills zero values for which zero is never a meaningful setting.
//
// Booleans and probabilities are left untouched; use DefaultConfig to get
// their defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	p := &c.Persona
	if p.BasePlan == "" {
		p.BasePlan = d.Persona.BasePlan
	}
	if p.PollInterval == 0 {
		p.PollInterval = d.Persona.PollInterval
	}
	if p.IdleThreshold == 0 {
		p.IdleThreshold = d.Persona.IdleThreshold
	}
	if p.PlanEvery == 0 {
		p.PlanEvery = d.Persona.PlanEvery
	}
	if p.ReflectionBatch == 0 {
		p.ReflectionBatch = d.Persona.ReflectionBatch
	}
	if p.LastMessages == 0 {
		p.LastMessages = d.Persona.LastMessages
	}
	if p.SubstateWeights.IsZero() {
		p.SubstateWeights = d.Persona.SubstateWeights
	}
	t := &p.Timeouts
	if t.Summary == 0 {
		t.Summary = d.Persona.Timeouts.Summary
	}
	if t.Queries == 0 {
		t.Queries = d.Persona.Timeouts.Queries
	}
	if t.Reflection == 0 {
		t.Reflection = d.Persona.Timeouts.Reflection
	}
	if t.Plan == 0 {
		t.Plan = d.Persona.Timeouts.Plan
	}
	if t.Response == 0 {
		t.Response = d.Persona.Timeouts.Response
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = d.LLM.MaxTokens
	}
	if c.Embedder.CacheSize == 0 {
		c.Embedder.CacheSize = d.Embedder.CacheSize
	}
	if c.Store.MaxDocuments == 0 {
		c.Store.MaxDocuments = d.Store.MaxDocuments
	}
	if c.Store.PersistencePath == "" {
		c.Store.PersistencePath = d.Store.PersistencePath
	}
	if c.Board.MessageWindow == 0 {
		c.Board.MessageWindow = d.Board.MessageWindow
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// PersistenceID returns the id used to name a persona's persistence and log files.
func (c *Config) PersistenceID(archetype string) string {
	if c.Store.PersistencePrefix == "" {
		return archetype
	}
	return c.Store.PersistencePrefix + "_" + archetype
}

// Seconds converts a configuration value in seconds to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Overrides DefaultConfig with every variable that is set
//
// Supported environment variables:
//   - PERSONA_CHANNEL_ID, PERSONA_BASE_PLAN, PERSONA_SEQUENTIAL_MODE
//   - PERSONA_MESSAGE_THROTTLE, PERSONA_MAX_RANDOM_RESPONSE_DELAY
//   - PERSONA_PLAN_INTERVAL, PERSONA_MEMORY_INTERVAL, PERSONA_PLANS, PERSONA_MEMORIES
//   - STORE_PROVIDER (sqlite, postgres, oceanbase), PERSISTENCE_PATH, PERSISTENCE_PREFIX, MAX_DOCUMENTS
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - OCEANBASE_HOST, OCEANBASE_PORT, OCEANBASE_USER, OCEANBASE_PASSWORD, OCEANBASE_DATABASE
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL, EMBEDDING_BASE_URL, EMBEDDING_DIMS
//   - LOG_LEVEL, LOG_FORMAT, LOG_PATH, LOG_SAVE_EVENTS
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	p := &cfg.Persona

	var err error
	if p.ChannelID, err = envInt64("PERSONA_CHANNEL_ID", p.ChannelID); err != nil {
		return nil, err
	}
	p.BasePlan = getEnvOrDefault("PERSONA_BASE_PLAN", p.BasePlan)
	if p.SequentialMode, err = envBool("PERSONA_SEQUENTIAL_MODE", p.SequentialMode); err != nil {
		return nil, err
	}
	if p.MessageThrottle, err = envFloat("PERSONA_MESSAGE_THROTTLE", p.MessageThrottle); err != nil {
		return nil, err
	}
	if p.MaxRandomResponseDelay, err = envFloat("PERSONA_MAX_RANDOM_RESPONSE_DELAY", p.MaxRandomResponseDelay); err != nil {
		return nil, err
	}
	if p.PlanInterval, err = envFloat("PERSONA_PLAN_INTERVAL", p.PlanInterval); err != nil {
		return nil, err
	}
	if p.MemoryInterval, err = envFloat("PERSONA_MEMORY_INTERVAL", p.MemoryInterval); err != nil {
		return nil, err
	}
	if p.Plans, err = envBool("PERSONA_PLANS", p.Plans); err != nil {
		return nil, err
	}
	if p.Memories, err = envBool("PERSONA_MEMORIES", p.Memories); err != nil {
		return nil, err
	}

	s := &cfg.Store
	s.Provider = getEnvOrDefault("STORE_PROVIDER", s.Provider)
	s.PersistencePath = getEnvOrDefault("PERSISTENCE_PATH", s.PersistencePath)
	s.PersistencePrefix = getEnvOrDefault("PERSISTENCE_PREFIX", s.PersistencePrefix)
	if s.MaxDocuments, err = envInt("MAX_DOCUMENTS", s.MaxDocuments); err != nil {
		return nil, err
	}

	switch s.Provider {
	case "postgres":
		s.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		s.Port, _ = strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		s.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		s.Password = os.Getenv("POSTGRES_PASSWORD")
		s.DBName = getEnvOrDefault("POSTGRES_DATABASE", "powerpersona")
		s.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
	case "oceanbase":
		s.Host = getEnvOrDefault("OCEANBASE_HOST", "127.0.0.1")
		s.Port, _ = strconv.Atoi(getEnvOrDefault("OCEANBASE_PORT", "2881"))
		s.User = getEnvOrDefault("OCEANBASE_USER", "root@sys")
		s.Password = os.Getenv("OCEANBASE_PASSWORD")
		s.DBName = getEnvOrDefault("OCEANBASE_DATABASE", "powerpersona")
	}

	l := &cfg.LLM
	l.Provider = getEnvOrDefault("LLM_PROVIDER", l.Provider)
	var defaultModel string
	switch l.Provider {
	case "openai":
		defaultModel = "gpt-4o-mini"
	case "anthropic":
		defaultModel = "claude-3-5-haiku-latest"
	default:
		defaultModel = "llama3:8b"
	}
	l.APIKey = os.Getenv("LLM_API_KEY")
	l.Model = getEnvOrDefault("LLM_MODEL", defaultModel)
	l.BaseURL = os.Getenv("LLM_BASE_URL")

	e := &cfg.Embedder
	e.Provider = getEnvOrDefault("EMBEDDING_PROVIDER", e.Provider)
	switch e.Provider {
	case "openai":
		e.Model = getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	default:
		e.Model = getEnvOrDefault("EMBEDDING_MODEL", e.Model)
	}
	e.APIKey = os.Getenv("EMBEDDING_API_KEY")
	e.BaseURL = os.Getenv("EMBEDDING_BASE_URL")
	if e.Dimensions, err = envInt("EMBEDDING_DIMS", e.Dimensions); err != nil {
		return nil, err
	}

	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Path = getEnvOrDefault("LOG_PATH", cfg.Log.Path)
	if cfg.Log.SaveEvents, err = envBool("LOG_SAVE_EVENTS", cfg.Log.SaveEvents); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromYAML loads configuration from a YAML file.
//
// Environment variables in the file are expanded. Unknown keys are rejected.
// The document may either be the Config itself or wrap it under a top-level
// "config" key.
//
// Example file:
//
//	config:
//	  persona:
//	    channel_id: 1
//	    sequential_mode: false
//	    plan_interval: -1
//	  llm:
//	    provider: ollama
//	    model: llama3:8b
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewPersonaError("LoadConfigFromYAML", err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	var probe map[string]yaml.Node
	if err := yaml.Unmarshal(expanded, &probe); err != nil {
		return nil, NewPersonaError("LoadConfigFromYAML", err)
	}

	cfg := DefaultConfig()
	if node, ok := probe["config"]; ok && len(probe) == 1 {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		if err := enc.Encode(&node); err != nil {
			return nil, NewPersonaError("LoadConfigFromYAML", err)
		}
		expanded = buf.Bytes()
	}

	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, NewPersonaError("LoadConfigFromYAML", err)
	}
	cfg.ApplyDefaults()

	return cfg, nil
}

// LoadConfigFromJSON loads configuration from a JSON file on top of DefaultConfig.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewPersonaError("LoadConfigFromJSON", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, NewPersonaError("LoadConfigFromJSON", err)
	}
	cfg.ApplyDefaults()

	return cfg, nil
}

// LoadConfig picks a loader from the file extension. An empty path loads from the environment.
func LoadConfig(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "":
		if path == "" {
			return LoadConfigFromEnv()
		}
		return LoadConfigFromEnvFile(path)
	case ".yaml", ".yml":
		return LoadConfigFromYAML(path)
	case ".json":
		return LoadConfigFromJSON(path)
	case ".env":
		return LoadConfigFromEnvFile(path)
	default:
		return nil, NewPersonaError("LoadConfig", wrapf(ErrInvalidConfig, "unsupported config file %q", path))
	}
}

// Validate validates the configuration.
//
// Checks that:
//   - LLM, embedder and store providers are set and known
//   - capacities and batch sizes are positive
//   - probabilities lie in [0, 1]
//   - substate weight ranges are well formed
//   - intervals are -1, 0 or positive
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "unknown llm provider %q", c.LLM.Provider))
	}
	switch c.Embedder.Provider {
	case "openai", "ollama", "hash":
	default:
		return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "unknown embedder provider %q", c.Embedder.Provider))
	}
	switch c.Store.Provider {
	case "sqlite", "postgres", "oceanbase":
	default:
		return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "unknown store provider %q", c.Store.Provider))
	}
	if c.Store.MaxDocuments <= 0 {
		return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "max_documents must be positive"))
	}

	p := c.Persona
	if p.PlanEvery <= 0 || p.ReflectionBatch <= 0 || p.LastMessages <= 0 {
		return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "plan_every, reflection_batch and last_messages must be positive"))
	}
	for name, v := range map[string]float64{
		"channel_switch_probability":   p.ChannelSwitchProbability,
		"self_topic_abort_probability": p.SelfTopicAbortProbability,
	} {
		if v < 0 || v > 1 {
			return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "%s must be within [0, 1]", name))
		}
	}
	for name, v := range map[string]float64{
		"plan_interval":   p.PlanInterval,
		"memory_interval": p.MemoryInterval,
	} {
		if v < 0 && v != -1 {
			return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "%s must be -1, 0 or positive", name))
		}
	}
	if p.MessageThrottle < 0 || p.MaxRandomResponseDelay < 0 || p.PollInterval < 0 {
		return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "delays must not be negative"))
	}
	w := p.SubstateWeights
	for name, r := range map[string]WeightRange{"batch": w.Batch, "ignore": w.Ignore, "only_read": w.OnlyRead} {
		if r.Min < 0 || r.Max < r.Min {
			return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "substate weight %s has an invalid range", name))
		}
	}
	if w.Batch.Max+w.Ignore.Max+w.OnlyRead.Max == 0 {
		return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "substate weights are all zero"))
	}
	if c.Board.MessageWindow <= 0 {
		return NewPersonaError("Validate", wrapf(ErrInvalidConfig, "message_window must be positive"))
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, NewPersonaError("LoadConfigFromEnv", wrapf(ErrInvalidConfig, "%s: %v", key, err))
	}
	return f, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewPersonaError("LoadConfigFromEnv", wrapf(ErrInvalidConfig, "%s: %v", key, err))
	}
	return i, nil
}

func envInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, NewPersonaError("LoadConfigFromEnv", wrapf(ErrInvalidConfig, "%s: %v", key, err))
	}
	return i, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, NewPersonaError("LoadConfigFromEnv", wrapf(ErrInvalidConfig, "%s: %v", key, err))
	}
	return b, nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
