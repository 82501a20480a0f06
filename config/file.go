package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// fileConfig is the on-disk shape. Credentials and paths live in the file;
// tuning knobs stay on flags.
type fileConfig struct {
	Login struct {
		User string `json:"user"`
		Pass string `json:"pass"`
	} `json:"login"`
	BaseDir string `json:"base_dir"`
	Data    struct {
		Cache struct {
			Order string `json:"order"`
			Thumb string `json:"thumb"`
		} `json:"cache"`
		Debug string `json:"debug"`
	} `json:"data"`
	Output struct {
		File   string `json:"file"`
		Format string `json:"format"`
	} `json:"output"`
	Crawl struct {
		SettleDelaySec int `json:"settle_delay_sec"`
		TimeoutSec     int `json:"timeout_sec"`
	} `json:"crawl"`
}

// LoadFile reads a json5 configuration file and merges an optional
// <name>.local.<ext> override on top, higher priority to the local file.
// The result is applied over cfg in place.
func LoadFile(cfg *Config, name string) error {
	merged, err := readMerged(name)
	if err != nil {
		return err
	}

	cfg.UserID = merged.Login.User
	cfg.Password = merged.Login.Pass

	base := merged.BaseDir
	if merged.Data.Cache.Order != "" {
		cfg.StatePath = filepath.Join(base, merged.Data.Cache.Order)
	}
	if merged.Data.Cache.Thumb != "" {
		cfg.ThumbDir = filepath.Join(base, merged.Data.Cache.Thumb)
	}
	if merged.Data.Debug != "" {
		cfg.DebugDir = filepath.Join(base, merged.Data.Debug)
	}
	if merged.Output.File != "" {
		cfg.OutputFile = filepath.Join(base, merged.Output.File)
	}
	if merged.Output.Format != "" {
		cfg.OutputFormat = strings.ToLower(merged.Output.Format)
	}
	if merged.Crawl.SettleDelaySec > 0 {
		cfg.SettleDelay = time.Duration(merged.Crawl.SettleDelaySec) * time.Second
	}
	if merged.Crawl.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(merged.Crawl.TimeoutSec) * time.Second
	}
	return nil
}

func readMerged(name string) (fileConfig, error) {
	var out fileConfig

	data, err := os.ReadFile(name)
	if err != nil {
		return out, fmt.Errorf("read config %s: %w", name, err)
	}
	if err := json5.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parse config %s: %w", name, err)
	}

	localPath := localName(name)
	localData, err := os.ReadFile(localPath)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("read config %s: %w", localPath, err)
	}

	var override fileConfig
	if err := json5.Unmarshal(localData, &override); err != nil {
		return out, fmt.Errorf("parse config %s: %w", localPath, err)
	}
	if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
		return out, fmt.Errorf("merge config overrides: %w", err)
	}
	slog.Info("merged config with local overrides", slog.String("local", localPath))
	return out, nil
}

func localName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}
