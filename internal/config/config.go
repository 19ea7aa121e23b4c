package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"github.com/varoOP/backlogdb/internal/domain"
)

// SetDefaults registers the default of every setting on viper
func SetDefaults() {
	dataDir := "."
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(dir, "backlogdb")
	}

	viper.SetDefault("backend", string(domain.BackendSQLite))
	viper.SetDefault("database_path", filepath.Join(dataDir, "backlogdb.db"))
	viper.SetDefault("locale", "pt-BR")
	viper.SetDefault("page_size", 10)

	viper.SetDefault("images_dir", "./images")
	viper.SetDefault("placeholder_image", "/images/placeholder.jpg")
	viper.SetDefault("search_mode", string(domain.SearchModeProxy))
	viper.SetDefault("search_timeout", 10*time.Second)
	viper.SetDefault("resolve_parallelism", 4)

	viper.SetDefault("history_mode", string(domain.HistoryModeProxy))
	viper.SetDefault("history_ttl", 15*time.Minute)

	viper.SetDefault("listen_addr", "127.0.0.1:8080")
	viper.SetDefault("log_level", "info")

	// keys without a default still need registering so Unmarshal sees BACKLOGDB_* variables
	for _, key := range []string{
		"supabase_url", "supabase_key", "google_api_key", "google_cse_id", "page_template",
		"openxbl_key", "proxy_url", "jwt_secret", "log_path", "discord_webhook_url",
	} {
		viper.SetDefault(key, "")
	}
}

// Load loads configuration from multiple sources:
// 1. Config file (config.yaml or $HOME/.backlogdb.yaml, optional)
// 2. Environment variables (BACKLOGDB_*)
func Load() (*domain.Config, error) {
	SetDefaults()

	cfg := &domain.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	switch cfg.Backend {
	case domain.BackendSQLite:
		if cfg.DatabasePath == "" {
			return nil, fmt.Errorf("database_path is required for the sqlite backend")
		}
	case domain.BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("supabase_url and supabase_key are required (set via config.yaml or BACKLOGDB_SUPABASE_URL / BACKLOGDB_SUPABASE_KEY)")
		}
	default:
		return nil, fmt.Errorf("invalid backend: %s (must be 'sqlite' or 'supabase')", cfg.Backend)
	}

	switch cfg.SearchMode {
	case domain.SearchModeProxy, domain.SearchModeNone:
	case domain.SearchModeGoogle:
		if cfg.GoogleAPIKey == "" || cfg.GoogleCSEID == "" {
			return nil, fmt.Errorf("google_api_key and google_cse_id are required for search_mode google")
		}
	case domain.SearchModePage:
		if cfg.PageTemplate == "" {
			return nil, fmt.Errorf("page_template is required for search_mode page")
		}
	default:
		return nil, fmt.Errorf("invalid search_mode: %s (must be 'proxy', 'google', 'page', or 'none')", cfg.SearchMode)
	}

	switch cfg.HistoryMode {
	case domain.HistoryModeProxy, domain.HistoryModeNone:
	case domain.HistoryModeOpenXBL:
		if cfg.OpenXBLKey == "" {
			return nil, fmt.Errorf("openxbl_key is required for history_mode openxbl")
		}
	default:
		return nil, fmt.Errorf("invalid history_mode: %s (must be 'proxy', 'openxbl', or 'none')", cfg.HistoryMode)
	}

	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page_size must be positive, got %d", cfg.PageSize)
	}

	return cfg, nil
}
