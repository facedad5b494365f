package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/weather"
)

const appName = "wetter"

// Default location of a fresh install.
const (
	DefaultLat         = 49.0
	DefaultLon         = 8.41
	DefaultMaxDistance = 1.0
)

var validate = validator.New()

type AppConfig struct {
	ConfigPath  string
	StorePath   string
	StoreDriver string `validate:"oneof=json sqlite"`

	LogPath     string
	LogToStderr bool
	LogLevel    logger.Level

	HTTPTimeout    time.Duration `validate:"gt=0"`
	UpdateInterval time.Duration `validate:"gte=1m"`
	Port           string        `validate:"required,numeric"`

	GeocoderAPIKey string

	// From the config file.
	MaxDistance float64
	Location    weather.Location
}

// File is the user-editable configuration file.
type File struct {
	MaxDistance float64      `toml:"max_distance" yaml:"max_distance" validate:"gt=0"`
	Location    FileLocation `toml:"location" yaml:"location"`
}

// FileLocation either pins coordinates or names a place to geocode.
type FileLocation struct {
	Lat     *float64 `toml:"lat,omitempty" yaml:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon     *float64 `toml:"lon,omitempty" yaml:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
	City    string   `toml:"city,omitempty" yaml:"city,omitempty"`
	Country string   `toml:"country,omitempty" yaml:"country,omitempty"`
}

// Geocoder resolves a place name to coordinates.
type Geocoder func(apiKey, city, country string) (weather.Location, error)

// Load reads configuration from environment and the config file with
// sensible defaults. A missing config file is created.
func Load() (*AppConfig, error) {
	return load(googleGeocode)
}

func load(geocode Geocoder) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{}

	cfg.ConfigPath = getenvDefault("WETTER_CONFIG", filepath.Join(xdg.ConfigHome, appName, appName+".toml"))
	cfg.StorePath = getenvDefault("WETTER_STORE", filepath.Join(xdg.DataHome, appName, appName+".json"))
	cfg.StoreDriver = strings.ToLower(getenvDefault("WETTER_STORE_DRIVER", "json"))
	cfg.LogPath = getenvDefault("WETTER_LOG_FILE", filepath.Join(xdg.StateHome, appName, appName+".log"))
	cfg.LogToStderr = getenvBool("WETTER_LOG_STDERR", false)
	cfg.LogLevel = logger.LevelFromEnv()
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("WETTER_HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpdateInterval, err = getenvDuration("WETTER_UPDATE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	file, err := ReadFile(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.MaxDistance = file.MaxDistance

	loc, err := file.Location.resolve(cfg.GeocoderAPIKey, geocode)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", cfg.ConfigPath, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// ReadFile parses and validates the config file at path, writing the
// default one first if it does not exist. Files ending in .yaml or .yml are
// read as YAML, anything else as TOML.
func ReadFile(path string) (File, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := WriteDefault(path); err != nil {
			return File{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}

	f := File{MaxDistance: DefaultMaxDistance}
	if isYAML(path) {
		err = yaml.Unmarshal(data, &f)
	} else {
		_, err = toml.Decode(string(data), &f)
	}
	if err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := validate.Struct(f); err != nil {
		return File{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return f, nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	lat, lon := DefaultLat, DefaultLon
	f := File{
		MaxDistance: DefaultMaxDistance,
		Location:    FileLocation{Lat: &lat, Lon: &lon},
	}

	var buf bytes.Buffer
	if isYAML(path) {
		enc := yaml.NewEncoder(&buf)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode default config: %w", err)
		}
		enc.Close()
	} else if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// LocationChanged reports whether the configured location moved further
// than MaxDistance degrees, in latitude or longitude, from current.
func (c *AppConfig) LocationChanged(current weather.Location) bool {
	return math.Abs(c.Location.Lat-current.Lat) > c.MaxDistance ||
		math.Abs(c.Location.Lon-current.Lon) > c.MaxDistance
}

func (l FileLocation) resolve(apiKey string, geocode Geocoder) (weather.Location, error) {
	if l.Lat != nil && l.Lon != nil {
		loc := weather.Location{Lat: *l.Lat, Lon: *l.Lon}
		return loc, loc.Validate()
	}
	if l.City == "" {
		return weather.Location{}, errors.New("location needs lat and lon, or a city to geocode")
	}
	if apiKey == "" {
		return weather.Location{}, fmt.Errorf("geocoding %q requires GEOCODER_API_KEY", l.City)
	}
	loc, err := geocode(apiKey, l.City, l.Country)
	if err != nil {
		return weather.Location{}, fmt.Errorf("geocode %s, %s: %w", l.City, l.Country, err)
	}
	return loc, loc.Validate()
}

func googleGeocode(apiKey, city, country string) (weather.Location, error) {
	geocoder.ApiKey = apiKey
	res, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
	if err != nil {
		return weather.Location{}, err
	}
	return weather.Location{Lat: res.Latitude, Lon: res.Longitude}, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
