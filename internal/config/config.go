// Package config loads server configuration from a TOML file with
// environment-variable overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains the HTTP listener and tenancy settings.
type Server struct {
	Bind string `toml:"bind"`
	// Tenants maps API keys to tenant identifiers.
	Tenants map[string]string `toml:"tenants"`
}

// Storage contains database and blob settings. Bucket empty means blobs go
// to the local directory.
type Storage struct {
	DBPath  string `toml:"db_path"`
	BlobDir string `toml:"blob_dir"`
	Bucket  string `toml:"gcs_bucket"`
}

// LLM contains the generation backend settings.
type LLM struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// DocAI contains the enhanced-extraction (OCR) processor settings; all
// empty disables the strategy and ingestion falls back to basic extraction.
type DocAI struct {
	ProjectID   string `toml:"project_id"`
	Location    string `toml:"location"`
	ProcessorID string `toml:"processor_id"`
}

// PriorArt contains the external bibliography lookup settings.
type PriorArt struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	StaggerMS int    `toml:"stagger_ms"`
}

type Config struct {
	Server   Server   `toml:"server"`
	Storage  Storage  `toml:"storage"`
	LLM      LLM      `toml:"llm"`
	DocAI    DocAI    `toml:"docai"`
	PriorArt PriorArt `toml:"priorart"`
}

func defaults() Config {
	return Config{
		Server:  Server{Bind: ":8080"},
		Storage: Storage{DBPath: "oa-response.db", BlobDir: "blobs"},
		PriorArt: PriorArt{
			StaggerMS: 300,
		},
	}
}

// Load reads the TOML file at path, applies env overrides, and validates.
// A missing file is fine; defaults plus env carry a dev setup.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Secrets come from the environment in deployment; the file forms carry
// local setups.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OA_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("OA_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("OA_BLOB_DIR"); v != "" {
		cfg.Storage.BlobDir = v
	}
	if v := os.Getenv("OA_GCS_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OA_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OA_DOCAI_PROJECT"); v != "" {
		cfg.DocAI.ProjectID = v
	}
	if v := os.Getenv("OA_DOCAI_LOCATION"); v != "" {
		cfg.DocAI.Location = v
	}
	if v := os.Getenv("OA_DOCAI_PROCESSOR"); v != "" {
		cfg.DocAI.ProcessorID = v
	}
	if v := os.Getenv("OA_PRIORART_URL"); v != "" {
		cfg.PriorArt.BaseURL = v
	}
	if v := os.Getenv("OA_PRIORART_API_KEY"); v != "" {
		cfg.PriorArt.APIKey = v
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	if strings.TrimSpace(cfg.Storage.DBPath) == "" {
		return errors.New("storage.db_path is required")
	}
	if cfg.Storage.Bucket == "" && strings.TrimSpace(cfg.Storage.BlobDir) == "" {
		return errors.New("either storage.gcs_bucket or storage.blob_dir is required")
	}
	if cfg.DocAI.ProjectID != "" || cfg.DocAI.Location != "" || cfg.DocAI.ProcessorID != "" {
		if cfg.DocAI.ProjectID == "" || cfg.DocAI.Location == "" || cfg.DocAI.ProcessorID == "" {
			return errors.New("docai requires project_id, location, and processor_id together")
		}
	}
	if cfg.PriorArt.StaggerMS < 0 {
		return errors.New("priorart.stagger_ms must not be negative")
	}
	return nil
}

// DocAIEnabled reports whether the enhanced-extraction strategy is
// configured.
func (c Config) DocAIEnabled() bool {
	return c.DocAI.ProjectID != "" && c.DocAI.Location != "" && c.DocAI.ProcessorID != ""
}

func (c Config) PriorArtEnabled() bool {
	return c.PriorArt.BaseURL != "" && c.PriorArt.APIKey != ""
}

func (c Config) PriorArtStagger() time.Duration {
	return time.Duration(c.PriorArt.StaggerMS) * time.Millisecond
}
