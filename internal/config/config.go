package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// LLMAPIBase is the base URL of the OpenAI-compatible chat-completions API
	// (without the /v1 suffix).
	LLMAPIBase string `json:"llm_api_base,omitempty"`

	// LLMModel is the model identifier sent with every completion request.
	LLMModel string `json:"llm_model,omitempty"`

	// LLMAPIKey authenticates against the backend. Prefer the NOTEPAD_API_KEY
	// environment variable over storing the key on disk.
	LLMAPIKey string `json:"llm_api_key,omitempty"`

	// LLMTemperature is the sampling temperature. Nil means "use default";
	// an explicit 0 requests deterministic sampling.
	LLMTemperature *float64 `json:"llm_temperature,omitempty"`

	// LLMMaxTokens caps the completion length.
	LLMMaxTokens int `json:"llm_max_tokens,omitempty"`

	// LLMTimeoutSeconds bounds a single upstream request.
	LLMTimeoutSeconds int `json:"llm_timeout_seconds,omitempty"`

	// LLMMock forces the deterministic offline planner even when a key is set.
	// The mock planner is also used whenever no API key is configured.
	LLMMock bool `json:"llm_mock,omitempty"`

	// ChecklistMin is the smallest checklist accepted from the model.
	// Plans with fewer usable steps are rejected.
	ChecklistMin int `json:"checklist_min,omitempty"`

	// ChecklistMax is the largest checklist kept; extra steps are dropped.
	ChecklistMax int `json:"checklist_max,omitempty"`

	// ServerBind is the interface the HTTP server listens on.
	ServerBind string `json:"server_bind,omitempty"`

	// ServerPort is the TCP port of the HTTP server.
	ServerPort int `json:"server_port,omitempty"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.notepad/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type prefixes to disable entirely
	// (e.g. "quickedit" disables quickedit_create).
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

const defaultTemperature = 0.3

// Float returns a pointer to v, for optional float settings.
func Float(v float64) *float64 {
	return &v
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLMAPIBase:        "https://api.openai.com",
		LLMModel:          "gpt-4o-mini",
		LLMTemperature:    Float(defaultTemperature),
		LLMMaxTokens:      1200,
		LLMTimeoutSeconds: 120,
		ChecklistMin:      3,
		ChecklistMax:      7,
		ServerBind:        "127.0.0.1",
		ServerPort:        8787,
		LogLevel:          "info",
	}
}

// UseMock reports whether the offline planner should serve plan/refine calls.
func (c *Config) UseMock() bool {
	return c.LLMMock || strings.TrimSpace(c.LLMAPIKey) == ""
}

// Temperature returns the sampling temperature, defaulting when unset.
func (c *Config) Temperature() float64 {
	if c.LLMTemperature == nil {
		return defaultTemperature
	}
	return *c.LLMTemperature
}

// LLMTimeout returns the upstream request timeout.
func (c *Config) LLMTimeout() time.Duration {
	if c.LLMTimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.notepad.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.notepad) and repo (.notepad) directories.
// Repo config is found by walking upward from startDir to find the nearest .notepad/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .notepad/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".notepad", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		LLMAPIBase:        firstString(overlay.LLMAPIBase, base.LLMAPIBase),
		LLMModel:          firstString(overlay.LLMModel, base.LLMModel),
		LLMAPIKey:         firstString(overlay.LLMAPIKey, base.LLMAPIKey),
		ServerBind:        firstString(overlay.ServerBind, base.ServerBind),
		LogLevel:          firstString(overlay.LogLevel, base.LogLevel),
		LLMMaxTokens:      firstInt(overlay.LLMMaxTokens, base.LLMMaxTokens),
		LLMTimeoutSeconds: firstInt(overlay.LLMTimeoutSeconds, base.LLMTimeoutSeconds),
		ChecklistMin:      firstInt(overlay.ChecklistMin, base.ChecklistMin),
		ChecklistMax:      firstInt(overlay.ChecklistMax, base.ChecklistMax),
		ServerPort:        firstInt(overlay.ServerPort, base.ServerPort),
		DBMaxOpenConns:    firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:    firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	result.LLMTemperature = base.LLMTemperature
	if overlay.LLMTemperature != nil {
		result.LLMTemperature = overlay.LLMTemperature
	}

	// Booleans: overlay wins if true, else base
	result.LLMMock = base.LLMMock || overlay.LLMMock
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// envKeys lists environment variables per setting, highest priority first.
var envKeys = struct {
	apiKey, model, apiBase, port, logLevel []string
}{
	apiKey:   []string{"NOTEPAD_API_KEY", "OPENAI_API_KEY", "ATLAS_API_KEY"},
	model:    []string{"NOTEPAD_MODEL", "MODEL_ID"},
	apiBase:  []string{"NOTEPAD_API_BASE", "ATLAS_API_BASE"},
	port:     []string{"PORT"},
	logLevel: []string{"NOTEPAD_LOG_LEVEL"},
}

// ApplyEnv returns a copy of cfg with environment overrides applied.
// lookup is usually os.LookupEnv; tests pass a map-backed function.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) *Config {
	out := *cfg
	if v, ok := lookupFirst(lookup, envKeys.apiKey); ok {
		out.LLMAPIKey = v
	}
	if v, ok := lookupFirst(lookup, envKeys.model); ok {
		out.LLMModel = v
	}
	if v, ok := lookupFirst(lookup, envKeys.apiBase); ok {
		out.LLMAPIBase = strings.TrimRight(v, "/")
	}
	if v, ok := lookupFirst(lookup, envKeys.port); ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			out.ServerPort = port
		}
	}
	if v, ok := lookupFirst(lookup, envKeys.logLevel); ok {
		out.LogLevel = v
	}
	return &out
}

func lookupFirst(lookup func(string) (string, bool), keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func firstString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
