package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
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
	Quiz struct {
		TTL      string `yaml:"ttl"`
		Weighted bool   `yaml:"weighted"`
		SeedFile string `yaml:"seedFile"`
	} `yaml:"quiz"`
	Game struct {
		RoundSize       int    `yaml:"roundSize"`
		QuestionSeconds int    `yaml:"questionSeconds"`
		AdvanceDelay    string `yaml:"advanceDelay"`
	} `yaml:"game"`
	Admin struct {
		Token string `yaml:"token"`
	} `yaml:"admin"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
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

// SeedQuiz is one entry of a quiz seed file.
type SeedQuiz struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// LoadSeed reads a YAML list of quizzes.
func LoadSeed(path string) ([]SeedQuiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var quizzes []SeedQuiz
	if err := yaml.Unmarshal(data, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}
