package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/fieldops/planner/internal/calendar"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	AdminKey          string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	Timezone          string        `mapstructure:"TIMEZONE"`
	SearchHorizonDays int           `mapstructure:"SEARCH_HORIZON_DAYS"`
	AppointmentStart  string        `mapstructure:"APPOINTMENT_START"`
	GeocoderURL       string        `mapstructure:"GEOCODER_URL"`
	CountryDefault    string        `mapstructure:"COUNTRY_DEFAULT"`
}

func Load() (Config, error) {
	return load(".env")
}

func load(file string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("TIMEZONE", "Europe/Paris")
	v.SetDefault("SEARCH_HORIZON_DAYS", 14)
	v.SetDefault("APPOINTMENT_START", "08:00")
	v.SetDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("COUNTRY_DEFAULT", "France")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		return Config{}, errors.New("config: DATABASE_URL is required when ENV=production")
	}
	if cfg.SearchHorizonDays <= 0 {
		return Config{}, fmt.Errorf("config: SEARCH_HORIZON_DAYS must be positive, got %d", cfg.SearchHorizonDays)
	}
	if _, err := calendar.ParseClock(cfg.AppointmentStart); err != nil {
		return Config{}, fmt.Errorf("config: APPOINTMENT_START: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("config: TIMEZONE: %w", err)
	}
	return cfg, nil
}

// Location is the timezone plans are made in.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) StartTime() calendar.Clock {
	clock, err := calendar.ParseClock(c.AppointmentStart)
	if err != nil {
		return calendar.NewClock(8, 0)
	}
	return clock
}
