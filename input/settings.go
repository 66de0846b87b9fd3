// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package input

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/creachadair/odatajson"
	"github.com/goccy/go-yaml"
	"github.com/tailscale/hujson"
)

// Settings control how a context reads its payload.
type Settings struct {
	// MaxNestingDepth is the maximum nesting depth of objects and arrays. If
	// it is zero, DefaultMaxNestingDepth is used.
	MaxNestingDepth int `json:"maxNestingDepth,omitempty" yaml:"maxNestingDepth,omitempty"`

	// Version is the OData protocol version of the payload, "4.0" or "4.01".
	// If it is empty, "4.0" is assumed.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// EnableReadingODataAnnotationWithoutPrefix permits OData annotations
	// without the "odata." prefix in a 4.0 payload. In 4.01 the prefix is
	// always optional.
	EnableReadingODataAnnotationWithoutPrefix bool `json:"enableReadingODataAnnotationWithoutPrefix,omitempty" yaml:"enableReadingODataAnnotationWithoutPrefix,omitempty"`

	// TokenSource, if set, constructs the token source for the payload text.
	// If nil, odatajson.NewTokenSource is used.
	TokenSource odatajson.TokenSourceFunc `json:"-" yaml:"-"`

	// Logger, if set, receives debug logs. If nil, logs are discarded.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// DefaultMaxNestingDepth is the nesting depth used when the settings do not
// specify one.
const DefaultMaxNestingDepth = 100

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	return Settings{MaxNestingDepth: DefaultMaxNestingDepth, Version: "4.0"}
}

// LoadSettings reads settings from the file at path, starting from the
// defaults. A file named *.yaml or *.yml is read as YAML; anything else is
// read as JSON, with comments and trailing commas permitted.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	s := DefaultSettings()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
		if err := json.Unmarshal(std, &s); err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
	}
	if err := s.check(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// check reports whether s is usable.
func (s Settings) check() error {
	if s.MaxNestingDepth < 0 {
		return fmt.Errorf("%w: negative nesting depth %d", ErrInvalidSettings, s.MaxNestingDepth)
	}
	switch s.Version {
	case "", "4.0", "4.01":
		return nil
	}
	return fmt.Errorf("%w: unsupported version %q", ErrInvalidSettings, s.Version)
}

// withDefaults returns a copy of s with unset fields filled in.
func (s Settings) withDefaults() Settings {
	if s.MaxNestingDepth == 0 {
		s.MaxNestingDepth = DefaultMaxNestingDepth
	}
	if s.Version == "" {
		s.Version = "4.0"
	}
	if s.TokenSource == nil {
		s.TokenSource = odatajson.NewTokenSource
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	return s
}
