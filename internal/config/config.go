package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is read from the working directory when no path is given
const DefaultFile = "subbot.toml"

// Translate configures the translation pipeline and its engines
type Translate struct {
	Engine          string `toml:"engine"` // "gemini", "openai", "deepl"
	Model           string `toml:"model"`  // empty: engine default
	SourceLang      string `toml:"source_lang"`
	TargetLang      string `toml:"target_lang"`
	Preset          string `toml:"preset"`
	CustomPrompt    string `toml:"custom_prompt"`
	Workers         int    `toml:"workers"`
	RateLimitPerMin int    `toml:"rate_limit_per_min"`
	MaxRetries      int    `toml:"max_retries"`
	ProgressEvery   int    `toml:"progress_every"`
	OutputPrefix    string `toml:"output_prefix"`
}

type Parse struct {
	Strict bool `toml:"strict"` // reject files containing malformed blocks
}

type Bot struct {
	KeyPrefix      string `toml:"key_prefix"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

type Config struct {
	Listen           string    `toml:"listen"`
	DataPath         string    `toml:"data_path"`
	DBPath           string    `toml:"db_path"`     // default <data_path>/subbot.db
	UploadPath       string    `toml:"upload_path"` // default <data_path>/uploads
	JWTSecret        string    `toml:"jwt_secret"`
	CredentialSecret string    `toml:"credential_secret"`
	CORSOrigins      []string  `toml:"cors_origins"`
	Translate        Translate `toml:"translate"`
	Parse            Parse     `toml:"parse"`
	Bot              Bot       `toml:"bot"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Listen:      ":8080",
		DataPath:    "./data",
		CORSOrigins: []string{"*"},
		Translate: Translate{
			Engine:          "gemini",
			SourceLang:      "en",
			TargetLang:      "si",
			Preset:          "movie",
			Workers:         1,
			RateLimitPerMin: 60,
			MaxRetries:      3,
			ProgressEvery:   10,
			OutputPrefix:    "sinhala",
		},
		Bot: Bot{
			KeyPrefix:      "AIza",
			MaxUploadBytes: 5 << 20,
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (or
// ./subbot.toml when path is empty and the file exists) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if exists {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
		log.Printf("[config] loaded %s", resolved)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolvePath(path string) (string, bool, error) {
	if path == "" {
		info, err := os.Stat(DefaultFile)
		if err != nil || info.IsDir() {
			return DefaultFile, false, nil
		}
		return DefaultFile, true, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("config file %s not found", path)
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return path, true, nil
}

func (c *Config) applyEnv() error {
	c.Listen = getEnv("LISTEN_ADDR", c.Listen)
	c.DataPath = getEnv("DATA_PATH", c.DataPath)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.UploadPath = getEnv("UPLOAD_PATH", c.UploadPath)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.CredentialSecret = getEnv("CREDENTIAL_SECRET", c.CredentialSecret)

	// CORS origins: comma-separated list or "*"
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		c.CORSOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	t := &c.Translate
	t.Engine = getEnv("TRANSLATE_ENGINE", t.Engine)
	t.Model = getEnv("TRANSLATE_MODEL", t.Model)
	t.SourceLang = getEnv("SOURCE_LANG", t.SourceLang)
	t.TargetLang = getEnv("TARGET_LANG", t.TargetLang)
	t.Preset = getEnv("TRANSLATE_PRESET", t.Preset)

	var err error
	if t.Workers, err = getEnvInt("TRANSLATE_WORKERS", t.Workers); err != nil {
		return err
	}
	if t.RateLimitPerMin, err = getEnvInt("TRANSLATE_RPM", t.RateLimitPerMin); err != nil {
		return err
	}
	if t.MaxRetries, err = getEnvInt("TRANSLATE_MAX_RETRIES", t.MaxRetries); err != nil {
		return err
	}
	if v := os.Getenv("PARSE_STRICT"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PARSE_STRICT: %w", err)
		}
		c.Parse.Strict = strict
	}
	return nil
}

func (c *Config) fillDerived() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataPath, "subbot.db")
	}
	if c.UploadPath == "" {
		c.UploadPath = filepath.Join(c.DataPath, "uploads")
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}

	// JWT secret: require explicit setting or generate random
	if c.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		c.JWTSecret = hex.EncodeToString(b)
		log.Println("[config] WARNING: JWT_SECRET not set, using random secret. Tokens will not survive restarts.")
	}
}

// Validate checks value ranges and known names
func (c *Config) Validate() error {
	switch c.Translate.Engine {
	case "gemini", "openai", "deepl":
	default:
		return fmt.Errorf("translate.engine: unknown engine %q", c.Translate.Engine)
	}
	switch c.Translate.Preset {
	case "movie", "anime", "documentary", "custom":
	default:
		return fmt.Errorf("translate.preset: unknown preset %q", c.Translate.Preset)
	}
	if c.Translate.TargetLang == "" {
		return errors.New("translate.target_lang must be set")
	}
	if c.Translate.Workers < 1 {
		return fmt.Errorf("translate.workers must be at least 1, got %d", c.Translate.Workers)
	}
	if c.Translate.MaxRetries < 1 {
		return fmt.Errorf("translate.max_retries must be at least 1, got %d", c.Translate.MaxRetries)
	}
	if c.Translate.RateLimitPerMin < 0 {
		return fmt.Errorf("translate.rate_limit_per_min must not be negative")
	}
	if c.Translate.ProgressEvery < 1 {
		return fmt.Errorf("translate.progress_every must be at least 1, got %d", c.Translate.ProgressEvery)
	}
	if c.Bot.KeyPrefix == "" {
		return errors.New("bot.key_prefix must be set")
	}
	if c.Bot.MaxUploadBytes <= 0 {
		return fmt.Errorf("bot.max_upload_bytes must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
