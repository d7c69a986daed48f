package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trivia-session-service/internal/domain"
)

type Config struct {
	Server struct {
		Port       string `yaml:"port"`
		SendBuffer int    `yaml:"sendBuffer"`
		Instance   string `yaml:"instance"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Game struct {
		JoinPolicy  string                                  `yaml:"joinPolicy"`
		SessionIdle string                                  `yaml:"sessionIdle"`
		Modes       map[domain.GameMode]domain.ModeDefaults `yaml:"modes"`
	} `yaml:"game"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields the zero Config,
// which runs the service fully in memory.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Modes merges configured per-mode defaults over domain.DefaultModes.
// Zero fields in an override keep the built-in value.
func (c Config) Modes() map[domain.GameMode]domain.ModeDefaults {
	out := make(map[domain.GameMode]domain.ModeDefaults, len(domain.DefaultModes))
	for mode, d := range domain.DefaultModes {
		out[mode] = d
	}
	for mode, o := range c.Game.Modes {
		d := out[mode]
		if o.TotalQuestions > 0 {
			d.TotalQuestions = o.TotalQuestions
		}
		if o.TimePerQuestion > 0 {
			d.TimePerQuestion = o.TimePerQuestion
		}
		if o.MaxPlayers > 0 {
			d.MaxPlayers = o.MaxPlayers
		}
		out[mode] = d
	}
	return out
}
