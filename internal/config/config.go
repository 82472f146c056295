package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config holds persistent settings and credentials.
type Config struct {
	MusicDir            string   `yaml:"music_dir"`
	Workers             int      `yaml:"workers"`
	Profiles            []string `yaml:"profiles"`
	PreferredFormat     string   `yaml:"preferred_format"`
	Bitrate             string   `yaml:"bitrate"`
	SpotifyClientID     string   `yaml:"spotify_client_id"`
	SpotifyClientSecret string   `yaml:"spotify_client_secret"`
}

// DefaultPath returns the config file location inside the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "sopti", "config.yaml"), nil
}

func defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		MusicDir:            filepath.Join(home, "Music"),
		Workers:             3,
		PreferredFormat:     "flac",
		Bitrate:             "auto",
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
	}
}

// Load reads the config file at path, writing one with defaults first if it
// does not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaults()
		if err := Save(path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer file.Close()

	var cfg Config
	dec := yaml.NewDecoder(file)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) fillDefaults() {
	d := defaults()
	if c.MusicDir == "" {
		c.MusicDir = d.MusicDir
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.PreferredFormat == "" {
		c.PreferredFormat = d.PreferredFormat
	}
	if c.Bitrate == "" {
		c.Bitrate = d.Bitrate
	}
	if c.SpotifyClientID == "" {
		c.SpotifyClientID = d.SpotifyClientID
	}
	if c.SpotifyClientSecret == "" {
		c.SpotifyClientSecret = d.SpotifyClientSecret
	}
}
