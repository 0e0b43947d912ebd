package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Speech      SpeechConfig     `yaml:"speech"`
	Summarizer  SummarizerConfig `yaml:"summarizer"`
	Notes       NotesConfig      `yaml:"notes"`
	Persist     PersistConfig    `yaml:"persist"`
	EventLog    EventLogConfig   `yaml:"event_log"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type SpeechConfig struct {
	Mode           string `yaml:"mode"` // mock, exec
	Command        string `yaml:"command"`
	Language       string `yaml:"language"`
	InterimResults bool   `yaml:"interim_results"`
}

type SummarizerConfig struct {
	Mode        string  `yaml:"mode"` // mock, ollama, exec
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Command     string  `yaml:"command"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutMS   int     `yaml:"timeout_ms"`
}

type NotesConfig struct {
	RenderPath string `yaml:"render_path"`
	Title      string `yaml:"title"`
}

type PersistConfig struct {
	Path string `yaml:"path"`
}

type EventLogConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxCaptures   int    `yaml:"max_captures"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

func Default() Config {
	return Config{
		RuntimeName: "voxnote",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Speech: SpeechConfig{
			Mode:           "mock",
			Language:       "en-US",
			InterimResults: true,
		},
		Summarizer: SummarizerConfig{
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   256,
			Temperature: 0.3,
			TimeoutMS:   60000,
		},
		Notes: NotesConfig{
			RenderPath: "./data/notes.md",
			Title:      "Voice Notes",
		},
		Persist: PersistConfig{
			Path: "./data/voxnote.db",
		},
		EventLog: EventLogConfig{
			Enabled:       true,
			Path:          "./data/voxnote-events.db",
			RetentionDays: 30,
			MaxCaptures:   10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "VOXNOTE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VOXNOTE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VOXNOTE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VOXNOTE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VOXNOTE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOXNOTE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOXNOTE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "VOXNOTE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOXNOTE_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "VOXNOTE_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "VOXNOTE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOXNOTE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOXNOTE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOXNOTE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOXNOTE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOXNOTE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Speech.Mode, "VOXNOTE_SPEECH_MODE")
	overrideString(&cfg.Speech.Command, "VOXNOTE_SPEECH_COMMAND")
	overrideString(&cfg.Speech.Language, "VOXNOTE_SPEECH_LANGUAGE")
	overrideBool(&cfg.Speech.InterimResults, "VOXNOTE_SPEECH_INTERIM_RESULTS")
	overrideString(&cfg.Summarizer.Mode, "VOXNOTE_SUMMARIZER_MODE")
	overrideString(&cfg.Summarizer.Endpoint, "VOXNOTE_SUMMARIZER_ENDPOINT")
	overrideString(&cfg.Summarizer.Model, "VOXNOTE_SUMMARIZER_MODEL")
	overrideString(&cfg.Summarizer.Command, "VOXNOTE_SUMMARIZER_COMMAND")
	overrideInt(&cfg.Summarizer.MaxTokens, "VOXNOTE_SUMMARIZER_MAX_TOKENS")
	overrideFloat(&cfg.Summarizer.Temperature, "VOXNOTE_SUMMARIZER_TEMPERATURE")
	overrideInt(&cfg.Summarizer.TimeoutMS, "VOXNOTE_SUMMARIZER_TIMEOUT_MS")
	overrideString(&cfg.Notes.RenderPath, "VOXNOTE_NOTES_RENDER_PATH")
	overrideString(&cfg.Notes.Title, "VOXNOTE_NOTES_TITLE")
	overrideString(&cfg.Persist.Path, "VOXNOTE_PERSIST_PATH")
	overrideBool(&cfg.EventLog.Enabled, "VOXNOTE_EVENT_LOG_ENABLED")
	overrideString(&cfg.EventLog.Path, "VOXNOTE_EVENT_LOG_PATH")
	overrideInt(&cfg.EventLog.RetentionDays, "VOXNOTE_EVENT_LOG_RETENTION_DAYS")
	overrideInt(&cfg.EventLog.MaxCaptures, "VOXNOTE_EVENT_LOG_MAX_CAPTURES")
	overrideBool(&cfg.EventLog.VacuumOnStart, "VOXNOTE_EVENT_LOG_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.Speech.Mode {
	case "mock", "exec":
	default:
		return errors.New("speech.mode must be one of mock|exec")
	}
	if cfg.Speech.Mode == "exec" && cfg.Speech.Command == "" {
		return errors.New("speech.command must be set when mode=exec")
	}
	if cfg.Speech.Language == "" {
		return errors.New("speech.language must not be empty")
	}
	switch cfg.Summarizer.Mode {
	case "mock", "ollama", "exec":
	default:
		return errors.New("summarizer.mode must be one of mock|ollama|exec")
	}
	if cfg.Summarizer.Mode == "ollama" && cfg.Summarizer.Endpoint == "" {
		return errors.New("summarizer.endpoint must be set when mode=ollama")
	}
	if cfg.Summarizer.Mode == "exec" && cfg.Summarizer.Command == "" {
		return errors.New("summarizer.command must be set when mode=exec")
	}
	if cfg.Summarizer.MaxTokens < 0 {
		return errors.New("summarizer.max_tokens must be >= 0")
	}
	if cfg.Summarizer.TimeoutMS < 0 {
		return errors.New("summarizer.timeout_ms must be >= 0")
	}
	if cfg.Notes.RenderPath == "" {
		return errors.New("notes.render_path must not be empty")
	}
	if cfg.Persist.Path == "" {
		return errors.New("persist.path must not be empty")
	}
	if cfg.EventLog.Enabled {
		if cfg.EventLog.Path == "" {
			return errors.New("event_log.path must not be empty when event log is enabled")
		}
		if cfg.EventLog.RetentionDays < 0 {
			return errors.New("event_log.retention_days must be >= 0")
		}
	}
	return nil
}
