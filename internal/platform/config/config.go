package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// File is the optional TOML settings file. Environment variables take
// precedence over every value in it.
type File struct {
	Server    ServerSection    `toml:"server"`
	Slideshow SlideshowSection `toml:"slideshow"`
	Viewport  ViewportSection  `toml:"viewport"`
	Fetch     FetchSection     `toml:"fetch"`
	Catalog   CatalogSection   `toml:"catalog"`
}

type ServerSection struct {
	Port      string `toml:"port"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

type SlideshowSection struct {
	PeriodMS        int `toml:"period_ms"`
	TransitionMS    int `toml:"transition_ms"`
	Count           int `toml:"count"`
	FrameIntervalMS int `toml:"frame_interval_ms"`
}

type ViewportSection struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type FetchSection struct {
	Workers      int    `toml:"workers"`
	Timeout      string `toml:"timeout"`
	MaxDimension int    `toml:"max_dimension"`
}

type CatalogSection struct {
	URL       string  `toml:"url"`
	File      string  `toml:"file"`
	Radius    float64 `toml:"radius"`
	Longitude float64 `toml:"longitude"`
	Latitude  float64 `toml:"latitude"`
}

// DefaultFile returns the settings used when no file is present.
func DefaultFile() File {
	return File{
		Server:    ServerSection{Port: "8080", LogLevel: "info", LogFormat: "json"},
		Slideshow: SlideshowSection{PeriodMS: 1500, TransitionMS: 500, Count: 20, FrameIntervalMS: 16},
		Viewport:  ViewportSection{Width: 800, Height: 600},
		Fetch:     FetchSection{Workers: 5, Timeout: "15s", MaxDimension: 2048},
		Catalog:   CatalogSection{Radius: 0.05},
	}
}

// LoadFile reads a TOML settings file on top of DefaultFile. A missing file is
// not an error.
func LoadFile(path string) (File, error) {
	f := DefaultFile()
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvFloat is GetEnvInt for floating point values.
func GetEnvFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return fallback
}

// GetEnvDuration parses values such as "15s" or "500ms".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// Duration parses s, returning fallback when it is empty or invalid.
func Duration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}
