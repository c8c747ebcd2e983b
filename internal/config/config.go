package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Detector DetectorConfig `yaml:"detector" toml:"detector"`
	Matcher  MatcherConfig  `yaml:"matcher" toml:"matcher"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
}

type DetectorConfig struct {
	CascadePath  string  `yaml:"cascade_path" toml:"cascade_path"` // empty means search common OpenCV install dirs
	ScaleFactor  float64 `yaml:"scale_factor" toml:"scale_factor" default:"1.1"`
	MinNeighbors int     `yaml:"min_neighbors" toml:"min_neighbors" default:"5"`
	MinFaceSize  int     `yaml:"min_face_size" toml:"min_face_size" default:"30"`
	MaxFaceSize  int     `yaml:"max_face_size" toml:"max_face_size"` // 0 is unbounded
}

type MatcherConfig struct {
	Tolerance float64 `yaml:"tolerance" toml:"tolerance" default:"0.6"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" toml:"addr" default:":8080"`
	BodyLimit    int           `yaml:"body_limit" toml:"body_limit" default:"10485760"` // bytes
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout" default:"30s"`
	LogFile      string        `yaml:"log_file" toml:"log_file"` // rotated daily when set
	LogMaxAge    time.Duration `yaml:"log_max_age" toml:"log_max_age" default:"168h"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" toml:"url"`
	MaxConns int    `yaml:"max_conns" toml:"max_conns" default:"10"`
}

// Load reads optional .env and config file (YAML or TOML, chosen by
// extension), then applies environment overrides. Empty path skips the file.
func Load(path string) (*Config, error) {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg := &Config{}
	defaults.SetDefaults(cfg)

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}

	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("FACE_CASCADE_PATH"); v != "" {
		cfg.Detector.CascadePath = v
	}
	if v := os.Getenv("FACE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FACE_LOG_FILE"); v != "" {
		cfg.Server.LogFile = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}

	var err error
	if cfg.Detector.MinNeighbors, err = envInt("FACE_MIN_NEIGHBORS", cfg.Detector.MinNeighbors); err != nil {
		return err
	}
	if cfg.Detector.MinFaceSize, err = envInt("FACE_MIN_SIZE", cfg.Detector.MinFaceSize); err != nil {
		return err
	}
	if cfg.Database.MaxConns, err = envInt("DATABASE_MAX_CONNS", cfg.Database.MaxConns); err != nil {
		return err
	}
	if cfg.Detector.ScaleFactor, err = envFloat("FACE_SCALE_FACTOR", cfg.Detector.ScaleFactor); err != nil {
		return err
	}
	if cfg.Matcher.Tolerance, err = envFloat("FACE_TOLERANCE", cfg.Matcher.Tolerance); err != nil {
		return err
	}

	return nil
}

// envInt reads an environment variable as a non-negative integer. Unset or
// empty variables keep defaultVal.
func envInt(key string, defaultVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: %d is negative", key, n)
	}
	return n, nil
}

// envFloat reads an environment variable as float.
func envFloat(key string, defaultVal float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// Validate checks values that would make detection or matching meaningless.
func (c *Config) Validate() error {
	var errs []error

	if c.Detector.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("detector.scale_factor should be greater than 1, got %v", c.Detector.ScaleFactor))
	}
	if c.Detector.MinNeighbors < 0 {
		errs = append(errs, fmt.Errorf("detector.min_neighbors should not be negative, got %d", c.Detector.MinNeighbors))
	}
	if c.Detector.MinFaceSize < 0 || c.Detector.MaxFaceSize < 0 {
		errs = append(errs, errors.New("detector face sizes should not be negative"))
	}
	if c.Detector.MaxFaceSize > 0 && c.Detector.MaxFaceSize < c.Detector.MinFaceSize {
		errs = append(errs, fmt.Errorf("detector.max_face_size %d is below min_face_size %d", c.Detector.MaxFaceSize, c.Detector.MinFaceSize))
	}
	if t := c.Matcher.Tolerance; math.IsNaN(t) || t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("matcher.tolerance should be within 0..1, got %v", t))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.BodyLimit <= 0 {
		errs = append(errs, fmt.Errorf("server.body_limit should be positive, got %d", c.Server.BodyLimit))
	}

	return errors.Join(errs...)
}
