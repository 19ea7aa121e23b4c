package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

// DiscordService implements NotificationService for Discord webhooks
type DiscordService struct {
	log        zerolog.Logger
	webhookURL string
	http       *httpx.Client
	now        func() time.Time
}

// NewDiscordService creates a new Discord notification service
func NewDiscordService(log zerolog.Logger, webhookURL string, hc *httpx.Client) *DiscordService {
	if hc == nil {
		hc = httpx.NewClient(log, httpx.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	}
	return &DiscordService{
		log:        log.With().Str("module", "notification").Str("type", "discord").Logger(),
		webhookURL: webhookURL,
		http:       hc,
		now:        time.Now,
	}
}

func topYears(years []domain.YearCount) string {
	if len(years) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(years))
	for _, y := range years {
		parts = append(parts, fmt.Sprintf("%d: %d", y.Year, y.Count))
	}
	return strings.Join(parts, "\n")
}

// SendSummary sends the statistics of one library
func (s *DiscordService) SendSummary(ctx context.Context, kind domain.Kind, summary domain.Summary) error {
	if s.webhookURL == "" {
		return nil // No webhook configured, skip silently
	}

	embed := discordEmbed{
		Title:       "Backlog summary",
		Description: fmt.Sprintf("Statistics of your %s", kind.Table()),
		Color:       0x00ff00, // Green
		Timestamp:   s.now().Format(time.RFC3339),
		Fields: []discordField{
			{
				Name:   "Logged",
				Value:  fmt.Sprintf("%d", summary.Total),
				Inline: true,
			},
			{
				Name:   "Completed",
				Value:  fmt.Sprintf("%d", summary.Completed),
				Inline: true,
			},
			{
				Name:   "Average rating",
				Value:  fmt.Sprintf("%.2f (%d rated)", summary.AverageRating, summary.Rated),
				Inline: true,
			},
			{
				Name:   "Per year",
				Value:  fmt.Sprintf("%.1f on average", summary.AveragePerYear),
				Inline: true,
			},
			{
				Name:   "Top years",
				Value:  topYears(summary.TopYears),
				Inline: false,
			},
		},
	}

	if !summary.CurrentYearInTop && summary.CurrentYear.Count > 0 {
		embed.Fields = append(embed.Fields, discordField{
			Name:   "This year",
			Value:  fmt.Sprintf("%d: %d", summary.CurrentYear.Year, summary.CurrentYear.Count),
			Inline: false,
		})
	}

	payload := discordWebhook{
		Embeds: []discordEmbed{embed},
	}

	return s.sendWebhook(ctx, payload)
}

// SendError sends an error notification with error details
func (s *DiscordService) SendError(ctx context.Context, err error) error {
	if s.webhookURL == "" {
		return nil // No webhook configured, skip silently
	}

	embed := discordEmbed{
		Title:       "backlogdb command failed",
		Description: fmt.Sprintf("Command failed with error:\n```%s```", err.Error()),
		Color:       0xff0000, // Red
		Timestamp:   s.now().Format(time.RFC3339),
	}

	payload := discordWebhook{
		Embeds: []discordEmbed{embed},
	}

	return s.sendWebhook(ctx, payload)
}

// sendWebhook sends a webhook payload to Discord
func (s *DiscordService) sendWebhook(ctx context.Context, payload discordWebhook) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal webhook payload")
	}

	header := http.Header{"Content-Type": {"application/json"}}
	if _, err := s.http.Do(ctx, http.MethodPost, s.webhookURL, header, jsonData); err != nil {
		return errors.Wrap(err, "failed to send webhook request")
	}

	s.log.Debug().Msg("Discord notification sent successfully")
	return nil
}

// discordWebhook represents a Discord webhook payload
type discordWebhook struct {
	Embeds []discordEmbed `json:"embeds"`
}

// discordEmbed represents a Discord embed
type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

// discordField represents a Discord embed field
type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}
