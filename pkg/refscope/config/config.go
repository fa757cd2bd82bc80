// Package config holds the inspector options: how deep to render, what to
// expand and which members and annotations to show.
//
// Options come from code, from a key/value map (legacy names such as expLvl
// and showPrivateMembers are accepted as aliases), from a YAML file or from
// REFSCOPE_* environment variables:
//
//	cfg, err := config.FromMap(map[string]any{"maxDepth": 4, "expLvl": 2})
//	cfg, err = config.Load("refscope.yaml")
//	cfg, err = config.FromEnv(cfg)
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownOption is returned for option keys the inspector does not
	// know.
	ErrUnknownOption = errors.New("unknown option")
	// ErrInvalidOption is returned when an option value has the wrong type.
	ErrInvalidOption = errors.New("invalid option value")
)

// EnvPrefix prefixes the environment variables read by FromEnv.
const EnvPrefix = "REFSCOPE_"

type Config struct {
	// ExpandLevel is the group level up to which output starts expanded;
	// -1 expands everything.
	ExpandLevel int `yaml:"expand_level" json:"expandLevel" validate:"gte=-1"`
	// MaxDepth caps group nesting; 0 means unlimited.
	MaxDepth             int  `yaml:"max_depth" json:"maxDepth" validate:"gte=0"`
	ShowPrivate          bool `yaml:"show_private" json:"showPrivate"`
	ShowMethods          bool `yaml:"show_methods" json:"showMethods"`
	ShowIteratorContents bool `yaml:"show_iterator_contents" json:"showIteratorContents"`
	ShowResourceInfo     bool `yaml:"show_resource_info" json:"showResourceInfo"`
	ShowStringMatches    bool `yaml:"show_string_matches" json:"showStringMatches"`
}

func Default() Config {
	return Config{
		ExpandLevel:          1,
		MaxDepth:             3,
		ShowPrivate:          true,
		ShowMethods:          true,
		ShowIteratorContents: false,
		ShowResourceInfo:     true,
		ShowStringMatches:    true,
	}
}

type option struct {
	key     string
	aliases []string
	env     string
	field   func(*Config) any
}

var options = []option{
	{"expandLevel", []string{"expLvl", "expand_level"}, "EXPAND_LEVEL", func(c *Config) any { return &c.ExpandLevel }},
	{"maxDepth", []string{"max_depth"}, "MAX_DEPTH", func(c *Config) any { return &c.MaxDepth }},
	{"showPrivate", []string{"showPrivateMembers", "show_private"}, "SHOW_PRIVATE", func(c *Config) any { return &c.ShowPrivate }},
	{"showMethods", []string{"show_methods"}, "SHOW_METHODS", func(c *Config) any { return &c.ShowMethods }},
	{"showIteratorContents", []string{"show_iterator_contents"}, "SHOW_ITERATOR_CONTENTS", func(c *Config) any { return &c.ShowIteratorContents }},
	{"showResourceInfo", []string{"show_resource_info"}, "SHOW_RESOURCE_INFO", func(c *Config) any { return &c.ShowResourceInfo }},
	{"showStringMatches", []string{"show_string_matches"}, "SHOW_STRING_MATCHES", func(c *Config) any { return &c.ShowStringMatches }},
}

// Keys lists the canonical option names.
func Keys() []string {
	keys := make([]string, len(options))
	for i, o := range options {
		keys[i] = o.key
	}
	return keys
}

func lookup(key string) (option, bool) {
	for _, o := range options {
		if o.key == key || slices.Contains(o.aliases, key) {
			return o, true
		}
	}
	return option{}, false
}

func unknown(key string) error {
	return fmt.Errorf("%w %q (valid options: %s)", ErrUnknownOption, key, strings.Join(Keys(), ", "))
}

// Set assigns one option by canonical name or alias.
func (c *Config) Set(key string, v any) error {
	o, ok := lookup(key)
	if !ok {
		return unknown(key)
	}
	switch p := o.field(c).(type) {
	case *int:
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("%w for %s: %w", ErrInvalidOption, o.key, err)
		}
		*p = n
	case *bool:
		b, err := toBool(v)
		if err != nil {
			return fmt.Errorf("%w for %s: %w", ErrInvalidOption, o.key, err)
		}
		*p = b
	}
	return nil
}

// Get returns one option by canonical name or alias.
func (c *Config) Get(key string) (any, error) {
	o, ok := lookup(key)
	if !ok {
		return nil, unknown(key)
	}
	switch p := o.field(c).(type) {
	case *int:
		return *p, nil
	case *bool:
		return *p, nil
	}
	return nil, unknown(key)
}

// FromMap applies the entries of m over the defaults. Keys are applied in
// sorted order so the first bad key reported is stable.
func FromMap(m map[string]any) (Config, error) {
	cfg := Default()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := cfg.Set(k, m[k]); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a YAML file over the defaults. Unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv applies REFSCOPE_* variables over base, loading a .env file from
// the working directory first when one exists.
func FromEnv(base Config) (Config, error) {
	_ = godotenv.Load()

	cfg := base
	for _, o := range options {
		raw, ok := os.LookupEnv(EnvPrefix + o.env)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		if err := cfg.Set(o.key, strings.TrimSpace(raw)); err != nil {
			return Config{}, fmt.Errorf("%s%s: %w", EnvPrefix, o.env, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int(n), nil
	case bool:
		// true expands everything
		if n {
			return -1, nil
		}
		return 0, nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		return b != 0, nil
	case string:
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("unsupported type %T", v)
}
