// Package config provides application settings and API-key handling.
//
// Settings come from a YAML file with environment-variable override
// (STORYFORGE_* variables win over file values). API keys are looked up
// from the provider's conventional environment variable first, then from
// the encrypted keystore; they are never written to the settings file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"storyforge/llm"
)

// Default timeouts. Chapter generation streams long output and gets a much
// larger budget than single-shot calls; local servers get a short budget so
// a dead server fails fast.
const (
	DefaultTimeout        = 120 * time.Second
	DefaultChapterTimeout = 600 * time.Second
	DefaultLocalTimeout   = 30 * time.Second
)

// Settings holds all application configuration.
type Settings struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float32       `mapstructure:"temperature"`
	LocalEndpoint     string        `mapstructure:"local_endpoint"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ChapterGenTimeout time.Duration `mapstructure:"chapter_timeout"`
	DataDir           string        `mapstructure:"data_dir"`
}

// Load reads settings from the named file (optional) with env override.
// A missing file is not an error; defaults apply.
func Load(path string) (Settings, error) {
	v := viper.New()
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "")
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("local_endpoint", "http://localhost:1234")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("chapter_timeout", DefaultChapterTimeout)
	v.SetDefault("data_dir", defaultDataDir())

	v.SetEnvPrefix("STORYFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return Settings{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parse config: %w", err)
	}

	if s.Model == "" {
		if id, err := llm.ParseProviderID(s.Provider); err == nil {
			s.Model = id.DefaultModel()
		}
	}
	return s, nil
}

// ProviderID resolves the configured provider name.
func (s Settings) ProviderID() (llm.ProviderID, error) {
	return llm.ParseProviderID(s.Provider)
}

// TimeoutFor returns the call budget for a request type on a provider.
func (s Settings) TimeoutFor(id llm.ProviderID, reqType llm.RequestType) time.Duration {
	if id == llm.Local {
		return DefaultLocalTimeout
	}
	if reqType == llm.TypeChapter || reqType == llm.TypeRevision {
		if s.ChapterGenTimeout > 0 {
			return s.ChapterGenTimeout
		}
		return DefaultChapterTimeout
	}
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

// APIKeyFor returns the key for a provider: environment variable first,
// then the encrypted keystore. Local never needs one.
func APIKeyFor(id llm.ProviderID, ks *Keystore) (string, error) {
	if !id.NeedsAPIKey() {
		return "", nil
	}
	if key := os.Getenv(id.EnvVar()); key != "" {
		return key, nil
	}
	if ks != nil {
		if key, err := ks.Get(id.String()); err == nil && key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("%s environment variable not set and no stored key for %s", id.EnvVar(), id)
}

// MaskKey renders an API key safe for logs: first four and last four
// characters with the middle elided. Short keys mask entirely.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storyforge"
	}
	return filepath.Join(home, ".storyforge")
}
