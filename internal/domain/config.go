package domain

import "time"

// BackendMode selects the row store
type BackendMode string

const (
	BackendSQLite   BackendMode = "sqlite"
	BackendSupabase BackendMode = "supabase"
)

// SearchMode selects where cover art candidates come from
type SearchMode string

const (
	// SearchModeProxy - ask the backlogdb proxy server, no credentials on the client (default)
	SearchModeProxy SearchMode = "proxy"
	// SearchModeGoogle - call the Custom Search API directly; only for the proxy server itself
	SearchModeGoogle SearchMode = "google"
	// SearchModePage - scrape a configured page template
	SearchModePage SearchMode = "page"
	// SearchModeNone - never query a provider, unresolved covers use the placeholder
	SearchModeNone SearchMode = "none"
)

// HistoryMode selects where the play-history feed comes from
type HistoryMode string

const (
	HistoryModeProxy   HistoryMode = "proxy"
	HistoryModeOpenXBL HistoryMode = "openxbl"
	HistoryModeNone    HistoryMode = "none"
)

type Config struct {
	Backend      BackendMode `mapstructure:"backend"`
	DatabasePath string      `mapstructure:"database_path"`
	SupabaseURL  string      `mapstructure:"supabase_url"`
	SupabaseKey  string      `mapstructure:"supabase_key"`

	Locale   string `mapstructure:"locale"`
	PageSize int    `mapstructure:"page_size"`

	ImagesDir          string        `mapstructure:"images_dir"`
	PlaceholderImage   string        `mapstructure:"placeholder_image"`
	SearchMode         SearchMode    `mapstructure:"search_mode"`
	SearchTimeout      time.Duration `mapstructure:"search_timeout"`
	ResolveParallelism int           `mapstructure:"resolve_parallelism"`
	GoogleAPIKey       string        `mapstructure:"google_api_key"`
	GoogleCSEID        string        `mapstructure:"google_cse_id"`
	PageTemplate       string        `mapstructure:"page_template"`

	HistoryMode HistoryMode   `mapstructure:"history_mode"`
	HistoryTTL  time.Duration `mapstructure:"history_ttl"`
	OpenXBLKey  string        `mapstructure:"openxbl_key"`

	ProxyURL   string `mapstructure:"proxy_url"`
	ListenAddr string `mapstructure:"listen_addr"`
	JWTSecret  string `mapstructure:"jwt_secret"`

	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`

	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`
}
