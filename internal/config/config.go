package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string   `env:"ADDR" envDefault:":8080"`
	OriginPatterns []string `env:"ORIGIN_PATTERNS" envSeparator:","`
	RoomCodeLength int      `env:"ROOM_CODE_LENGTH" envDefault:"6"`
	WordsFile      string   `env:"WORDS_FILE"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.RoomCodeLength < 4 {
		return Config{}, fmt.Errorf("ROOM_CODE_LENGTH must be at least 4, got %d", cfg.RoomCodeLength)
	}
	return cfg, nil
}
