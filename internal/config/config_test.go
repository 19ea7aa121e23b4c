package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/backlogdb/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, domain.BackendSQLite, cfg.Backend)
	assert.Equal(t, domain.SearchModeProxy, cfg.SearchMode)
	assert.Equal(t, domain.HistoryModeProxy, cfg.HistoryMode)
	assert.Equal(t, 15*time.Minute, cfg.HistoryTTL)
	assert.Equal(t, 10*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "pt-BR", cfg.Locale)
	assert.NotEmpty(t, cfg.DatabasePath)
}

func TestLoad_ConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: supabase
supabase_url: https://project.supabase.co
supabase_key: anon
search_mode: google
google_api_key: key
google_cse_id: cx
history_mode: none
history_ttl: 5m
page_size: 25
`), 0644))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, domain.BackendSupabase, cfg.Backend)
	assert.Equal(t, "https://project.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, domain.SearchModeGoogle, cfg.SearchMode)
	assert.Equal(t, 5*time.Minute, cfg.HistoryTTL)
	assert.Equal(t, 25, cfg.PageSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
		want string
	}{
		{"backend", map[string]any{"backend": "mysql"}, "invalid backend"},
		{"supabase credentials", map[string]any{"backend": "supabase"}, "supabase_url"},
		{"search mode", map[string]any{"search_mode": "bing"}, "invalid search_mode"},
		{"google credentials", map[string]any{"search_mode": "google"}, "google_api_key"},
		{"page template", map[string]any{"search_mode": "page"}, "page_template"},
		{"history mode", map[string]any{"history_mode": "psn"}, "invalid history_mode"},
		{"openxbl key", map[string]any{"history_mode": "openxbl"}, "openxbl_key"},
		{"page size", map[string]any{"page_size": 0}, "page_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			for k, v := range tt.set {
				viper.Set(k, v)
			}

			_, err := Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
