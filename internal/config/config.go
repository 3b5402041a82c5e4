package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults for the hosted Alai and Firecrawl services. A YAML overrides file
// can point everything at a staging deployment or local fakes.
const (
	DefaultAuthURL         = "https://api.getalai.com/auth/v1/token"
	DefaultBackendURL      = "https://alai-standalone-backend.getalai.com"
	DefaultShareBaseURL    = "https://app.getalai.com/view"
	DefaultVariantEndpoint = "wss://alai-standalone-backend.getalai.com/ws/create-and-stream-slide-variants"
	DefaultFirecrawlURL    = "https://api.firecrawl.dev/v1/extract"
	DefaultThemeID         = "a6bff6e5-3afc-4336-830b-fbc710081012"
	DefaultSnapshotPath    = "data.json"
)

// Config holds credentials and endpoints for one deck generation run.
type Config struct {
	// Alai account credentials and API key.
	Email    string
	Password string
	APIKey   string

	// Extraction backend selection and credentials.
	ExtractProvider string
	FirecrawlAPIKey string
	FirecrawlURL    string
	GeminiModel     string

	// Presentation backend endpoints and theming.
	AuthURL         string
	BackendURL      string
	ShareBaseURL    string
	VariantEndpoint string
	ThemeID         string
	ColorSetID      int

	// Where each raw extraction result is written for debugging.
	SnapshotPath string
}

// fileOverrides is the shape of the optional --config YAML file.
type fileOverrides struct {
	AuthURL         string `yaml:"auth_url"`
	BackendURL      string `yaml:"backend_url"`
	ShareBaseURL    string `yaml:"share_base_url"`
	VariantEndpoint string `yaml:"variant_endpoint"`
	FirecrawlURL    string `yaml:"firecrawl_url"`
	ThemeID         string `yaml:"theme_id"`
	ColorSetID      *int   `yaml:"color_set_id"`
	SnapshotPath    string `yaml:"snapshot_path"`
}

// Load builds a Config from environment variables, then applies the optional
// YAML overrides file at path. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Email:           os.Getenv("ALAI_EMAIL"),
		Password:        os.Getenv("ALAI_PASSWORD"),
		APIKey:          os.Getenv("ALAI_API_KEY"),
		ExtractProvider: os.Getenv("EXTRACT_PROVIDER"),
		FirecrawlAPIKey: os.Getenv("FIRECRAWL_API_KEY"),
		FirecrawlURL:    DefaultFirecrawlURL,
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		AuthURL:         DefaultAuthURL,
		BackendURL:      DefaultBackendURL,
		ShareBaseURL:    DefaultShareBaseURL,
		VariantEndpoint: DefaultVariantEndpoint,
		ThemeID:         DefaultThemeID,
		ColorSetID:      0,
		SnapshotPath:    DefaultSnapshotPath,
	}

	if cfg.ExtractProvider == "" {
		cfg.ExtractProvider = "firecrawl"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-1.5-flash"
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if overrides.AuthURL != "" {
		cfg.AuthURL = overrides.AuthURL
	}
	if overrides.BackendURL != "" {
		cfg.BackendURL = overrides.BackendURL
	}
	if overrides.ShareBaseURL != "" {
		cfg.ShareBaseURL = overrides.ShareBaseURL
	}
	if overrides.VariantEndpoint != "" {
		cfg.VariantEndpoint = overrides.VariantEndpoint
	}
	if overrides.FirecrawlURL != "" {
		cfg.FirecrawlURL = overrides.FirecrawlURL
	}
	if overrides.ThemeID != "" {
		cfg.ThemeID = overrides.ThemeID
	}
	if overrides.ColorSetID != nil {
		cfg.ColorSetID = *overrides.ColorSetID
	}
	if overrides.SnapshotPath != "" {
		cfg.SnapshotPath = overrides.SnapshotPath
	}

	return cfg, nil
}
