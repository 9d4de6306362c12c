package kifu

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"shogirule/pkg/shogi"
)

type NyugyokuConfig struct {
	SentePoints int `json:"sente_points"`
	GotePoints  int `json:"gote_points"`
	MinPieces   int `json:"min_pieces"`
}

// Config is read from config.json. Zero values mean the defaults.
type Config struct {
	Nyugyoku NyugyokuConfig `json:"nyugyoku"`
	HashSeed uint64         `json:"hash_seed"`
	MaxPly   int            `json:"max_ply"`
	Parallel int64          `json:"parallel"`
	Workers  int            `json:"workers"`
}

var ErrConfigNotFound = errors.New("config.json not found")

func FindConfigPath() (string, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	dir := cwd
	for {
		path := filepath.Join(dir, "config.json")
		if _, err := os.Stat(path); err == nil {
			return path, filepath.Dir(path), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", fmt.Errorf("%w from %s", ErrConfigNotFound, cwd)
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.MaxPly < 0 || cfg.Parallel < 0 || cfg.Workers < 0 {
		return Config{}, fmt.Errorf("%s: negative limits", path)
	}
	return cfg, nil
}

// ResolveConfig loads path, or the nearest config.json when path is empty.
// A missing config.json is not an error when it was not asked for.
func ResolveConfig(path string) (Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	found, _, err := FindConfigPath()
	if errors.Is(err, ErrConfigNotFound) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	return LoadConfig(found)
}

func (c Config) NyugyokuRule() shogi.NyugyokuRule {
	rule := shogi.DefaultNyugyokuRule
	if c.Nyugyoku.SentePoints > 0 {
		rule.SentePoints = c.Nyugyoku.SentePoints
	}
	if c.Nyugyoku.GotePoints > 0 {
		rule.GotePoints = c.Nyugyoku.GotePoints
	}
	if c.Nyugyoku.MinPieces > 0 {
		rule.MinPieces = c.Nyugyoku.MinPieces
	}
	return rule
}

func (c Config) Hasher() *shogi.KyokumenHash {
	seed := c.HashSeed
	if seed == 0 {
		seed = shogi.DefaultHashSeed
	}
	return shogi.NewKyokumenHash(seed)
}

func (c Config) ParquetParallel() int64 {
	if c.Parallel <= 0 {
		return 4
	}
	return c.Parallel
}

func (c Config) Replayer() *Replayer {
	return &Replayer{Hasher: c.Hasher(), Rule: c.NyugyokuRule(), MaxPly: c.MaxPly}
}
