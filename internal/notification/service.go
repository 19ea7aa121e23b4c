package notification

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/varoOP/backlogdb/internal/domain"
	"github.com/varoOP/backlogdb/internal/httpx"
)

// Service is a composite notification service that can send notifications
// through multiple channels
type Service struct {
	discord *DiscordService
}

// NewService creates a new notification service. hc may be nil.
func NewService(log zerolog.Logger, webhookURL string, hc *httpx.Client) domain.NotificationService {
	var discord *DiscordService
	if webhookURL != "" {
		discord = NewDiscordService(log, webhookURL, hc)
	}

	return &Service{
		discord: discord,
	}
}

// SendSummary sends the statistics through all configured channels
func (s *Service) SendSummary(ctx context.Context, kind domain.Kind, summary domain.Summary) error {
	if s.discord != nil {
		if err := s.discord.SendSummary(ctx, kind, summary); err != nil {
			return err
		}
	}
	return nil
}

// SendError sends error notifications through all configured channels
func (s *Service) SendError(ctx context.Context, err error) error {
	if s.discord != nil {
		if err := s.discord.SendError(ctx, err); err != nil {
			return err
		}
	}
	return nil
}
