package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/inboxkeep/mailclerk/internal/logger"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	IMAPConfig      *IMAPConfig
	SessionConfig   *SessionConfig
	RateLimitConfig *RateLimitConfig
	FetchConfig     *FetchConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		IMAPConfig:      &IMAPConfig{},
		SessionConfig:   &SessionConfig{},
		RateLimitConfig: &RateLimitConfig{},
		FetchConfig:     &FetchConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailclerk config: %v", err)
	}

	return config, nil
}
