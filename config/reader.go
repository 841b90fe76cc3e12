package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/planner2d/logging"
)

// Read reads a config from the given file, substituting environment variables.
// A relative map image path is resolved against the config file's directory.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", filePath)
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	if cfg.Map.ImagePath != "" && originalPath != "" && !filepath.IsAbs(cfg.Map.ImagePath) {
		cfg.Map.ImagePath = filepath.Join(filepath.Dir(originalPath), cfg.Map.ImagePath)
	}
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	logger.Debugw("config read", "path", originalPath, "map", cfg.Map.ImagePath)
	return &cfg, nil
}
