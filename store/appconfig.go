package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"docview/logger"
)

// AppConfig holds the user's display preferences. Nil fields are unset: they
// are omitted on disk and left alone by Merge.
type AppConfig struct {
	Language   *string `json:"language,omitempty"`
	FontSizePx *uint32 `json:"fontSizePx,omitempty"`
}

// Merge returns c with every field that is set in partial overwritten.
func (c AppConfig) Merge(partial AppConfig) AppConfig {
	if partial.Language != nil {
		v := *partial.Language
		c.Language = &v
	}
	if partial.FontSizePx != nil {
		v := *partial.FontSizePx
		c.FontSizePx = &v
	}
	return c
}

// ConfigFile is the JSON document AppConfig is stored in.
type ConfigFile struct {
	Path string
}

// Load reads the config. A missing or blank file yields the zero config; a
// file that does not parse is an error.
func (f ConfigFile) Load() (AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", f.Path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config %s: %w", f.Path, err)
	}
	return cfg, nil
}

// Save merges partial into the stored config and writes it back atomically.
// A stored config that cannot be read is replaced.
func (f ConfigFile) Save(partial AppConfig) error {
	current, err := f.Load()
	if err != nil {
		logger.Warnf("Replacing unreadable config: %v", err)
		current = AppConfig{}
	}
	merged := current.Merge(partial)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := WriteFileAtomic(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
