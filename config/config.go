package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabasePath string
	Timezone     *time.Location
	DigestTime   string
}

func Load() (*Config, error) {
	dbPath := os.Getenv("AGENDA_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/agenda.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "Local"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	digestTime := os.Getenv("DIGEST_TIME")
	if digestTime == "" {
		digestTime = "09:00"
	}
	if _, terr := time.Parse("15:04", digestTime); terr != nil {
		return nil, fmt.Errorf("invalid DIGEST_TIME %q: expected HH:MM", digestTime)
	}

	return &Config{
		DatabasePath: dbPath,
		Timezone:     tz,
		DigestTime:   digestTime,
	}, nil
}
