package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	// Backend is the MaiPocket REST backend. When URL is empty the service runs
	// standalone on the question bank and the configured score store.
	Backend struct {
		URL      string `yaml:"url"`
		Timeout  string `yaml:"timeout"`
		RetryFor string `yaml:"retry_for"`
	} `yaml:"backend"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	// Auth verifies bearer tokens locally. Without a secret, tokens are only
	// trusted when Backend.URL is set.
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	LocalStore struct {
		Engine string `yaml:"engine"`
		Path   string `yaml:"path"`
	} `yaml:"local_store"`
	Media struct {
		Dir         string `yaml:"dir"`
		Timeout     string `yaml:"timeout"`
		Parallelism int    `yaml:"parallelism"`
	} `yaml:"media"`
	Questions struct {
		Bank string `yaml:"bank"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Quiz struct {
		RankedQuestions     int    `yaml:"ranked_questions"`
		RankedMinQuestions  int    `yaml:"ranked_min_questions"`
		CasualQuestions     int    `yaml:"casual_questions"`
		CasualMinQuestions  int    `yaml:"casual_min_questions"`
		TimeLimit           string `yaml:"time_limit"`
		WrongRevealDelay    string `yaml:"wrong_reveal_delay"`
		CorrectShowDelay    string `yaml:"correct_show_delay"`
		CorrectAdvanceDelay string `yaml:"correct_advance_delay"`
		MediaStallTimeout   string `yaml:"media_stall_timeout"`
		BaseLives           int    `yaml:"base_lives"`
		PassLives           int    `yaml:"pass_lives"`
		LifePass            bool   `yaml:"life_pass"`
		ResultRetention     string `yaml:"result_retention"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
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

// IntOr returns v, or fallback when v is not positive.
func IntOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
