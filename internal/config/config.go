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

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type StoreConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxUtterances int    `yaml:"max_utterances"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type CaptureConfig struct {
	DeviceID        int `yaml:"device_id"`
	SampleRate      int `yaml:"sample_rate"`
	FramesPerBuffer int `yaml:"frames_per_buffer"`
	ChunkTimeoutMS  int `yaml:"chunk_timeout_ms"`
}

type VADConfig struct {
	FrameDurationMS int `yaml:"frame_duration_ms"`
	Aggressiveness  int `yaml:"aggressiveness"`
}

type NoiseConfig struct {
	Enabled bool `yaml:"enabled"`
}

type EngineConfig struct {
	Mode       string `yaml:"mode"` // vosk, whisper, exec, mock
	ModelPath  string `yaml:"model_path"`
	Command    string `yaml:"command"`
	Language   string `yaml:"language"`
	SampleRate int    `yaml:"sample_rate"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Store       StoreConfig     `yaml:"store"`
	Capture     CaptureConfig   `yaml:"capture"`
	VAD         VADConfig       `yaml:"vad"`
	Noise       NoiseConfig     `yaml:"noise"`
	Engine      EngineConfig    `yaml:"engine"`
	Archive     ArchiveConfig   `yaml:"archive"`
}

func Default() Config {
	return Config{
		RuntimeName: "hark",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8089,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        true,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Store: StoreConfig{
			Enabled:       true,
			Path:          "./data/hark-transcripts.db",
			RetentionDays: 30,
			MaxUtterances: 50000,
		},
		Capture: CaptureConfig{
			DeviceID:        0,
			SampleRate:      16000,
			FramesPerBuffer: 320,
			ChunkTimeoutMS:  100,
		},
		VAD: VADConfig{
			FrameDurationMS: 20,
			Aggressiveness:  2,
		},
		Noise: NoiseConfig{
			Enabled: false,
		},
		Engine: EngineConfig{
			Mode:       "mock",
			SampleRate: 16000,
		},
		Archive: ArchiveConfig{
			Enabled:   false,
			Directory: "./data/utterances",
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
	overrideString(&cfg.RuntimeName, "HARK_RUNTIME_NAME")
	overrideString(&cfg.Environment, "HARK_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "HARK_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "HARK_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "HARK_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "HARK_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "HARK_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "HARK_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "HARK_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "HARK_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "HARK_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "HARK_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "HARK_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "HARK_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "HARK_BUS_TOKEN")
	overrideInt(&cfg.Bus.ConnectTimeout, "HARK_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.Store.Enabled, "HARK_STORE_ENABLED")
	overrideString(&cfg.Store.Path, "HARK_STORE_PATH")
	overrideInt(&cfg.Store.RetentionDays, "HARK_STORE_RETENTION_DAYS")
	overrideInt(&cfg.Store.MaxUtterances, "HARK_STORE_MAX_UTTERANCES")
	overrideBool(&cfg.Store.VacuumOnStart, "HARK_STORE_VACUUM_ON_START")
	overrideInt(&cfg.Capture.DeviceID, "HARK_CAPTURE_DEVICE_ID")
	overrideInt(&cfg.Capture.SampleRate, "HARK_CAPTURE_SAMPLE_RATE")
	overrideInt(&cfg.Capture.FramesPerBuffer, "HARK_CAPTURE_FRAMES_PER_BUFFER")
	overrideInt(&cfg.Capture.ChunkTimeoutMS, "HARK_CAPTURE_CHUNK_TIMEOUT_MS")
	overrideInt(&cfg.VAD.FrameDurationMS, "HARK_VAD_FRAME_DURATION_MS")
	overrideInt(&cfg.VAD.Aggressiveness, "HARK_VAD_AGGRESSIVENESS")
	overrideBool(&cfg.Noise.Enabled, "HARK_NOISE_ENABLED")
	overrideString(&cfg.Engine.Mode, "HARK_ENGINE_MODE")
	overrideString(&cfg.Engine.ModelPath, "HARK_ENGINE_MODEL_PATH")
	overrideString(&cfg.Engine.Command, "HARK_ENGINE_COMMAND")
	overrideString(&cfg.Engine.Language, "HARK_ENGINE_LANGUAGE")
	overrideInt(&cfg.Engine.SampleRate, "HARK_ENGINE_SAMPLE_RATE")
	overrideBool(&cfg.Archive.Enabled, "HARK_ARCHIVE_ENABLED")
	overrideString(&cfg.Archive.Directory, "HARK_ARCHIVE_DIRECTORY")
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
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Store.Enabled {
		if cfg.Store.Path == "" {
			return errors.New("store.path must not be empty when the store is enabled")
		}
		if cfg.Store.RetentionDays < 0 {
			return errors.New("store.retention_days must be >= 0")
		}
		if cfg.Store.MaxUtterances < 0 {
			return errors.New("store.max_utterances must be >= 0")
		}
	}
	if cfg.Capture.DeviceID < 0 {
		return errors.New("capture.device_id must be >= 0")
	}
	if cfg.Capture.SampleRate <= 0 {
		return errors.New("capture.sample_rate must be positive")
	}
	if cfg.Capture.FramesPerBuffer <= 0 {
		return errors.New("capture.frames_per_buffer must be positive")
	}
	if cfg.Capture.ChunkTimeoutMS <= 0 {
		return errors.New("capture.chunk_timeout_ms must be positive")
	}
	switch cfg.VAD.FrameDurationMS {
	case 10, 20, 30:
	default:
		return errors.New("vad.frame_duration_ms must be 10, 20 or 30")
	}
	if cfg.VAD.Aggressiveness < 0 || cfg.VAD.Aggressiveness > 3 {
		return errors.New("vad.aggressiveness must be between 0 and 3")
	}
	switch cfg.Engine.Mode {
	case "vosk", "whisper", "exec", "mock":
	default:
		return errors.New("engine.mode must be one of vosk|whisper|exec|mock")
	}
	if (cfg.Engine.Mode == "vosk" || cfg.Engine.Mode == "whisper") && cfg.Engine.ModelPath == "" {
		return fmt.Errorf("engine.model_path must be set when mode=%s", cfg.Engine.Mode)
	}
	if cfg.Engine.Mode == "exec" && cfg.Engine.Command == "" {
		return errors.New("engine.command must be set when mode=exec")
	}
	if cfg.Engine.SampleRate <= 0 {
		return errors.New("engine.sample_rate must be positive")
	}
	if cfg.Archive.Enabled && cfg.Archive.Directory == "" {
		return errors.New("archive.directory must not be empty when the archive is enabled")
	}
	return nil
}
