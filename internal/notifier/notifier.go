// Package notifier defines the outbound ops notification surface. Real
// transports (SMTP, Telegram bot API) are deployment concerns; the default
// implementation only logs the intent.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// EmailRequest describes one email notification.
type EmailRequest struct {
	To        string
	Subject   string
	Template  string
	Body      string
	Variables map[string]any
}

// TelegramRequest describes one message sent through a bot.
type TelegramRequest struct {
	ChatID    string
	Message   string
	ParseMode string
	Variables map[string]any
}

// Service sends operator notifications about terminal delivery failures.
type Service interface {
	SendEmail(ctx context.Context, req EmailRequest) error
	SendTelegram(ctx context.Context, req TelegramRequest) error
}

// ErrNotImplemented means no real notification channel is configured.
// Callers that only need best-effort alerting treat it as a non-error.
var ErrNotImplemented = errors.New("notifier: not implemented")

// LoggerService writes notification intents to the log. It is the default
// Service until a real transport is wired in.
type LoggerService struct {
	logger *slog.Logger
}

// NewLoggerService builds a log-only notification service.
func NewLoggerService(logger *slog.Logger) *LoggerService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerService{logger: logger}
}

// SendEmail logs the email request.
func (s *LoggerService) SendEmail(ctx context.Context, req EmailRequest) error {
	if strings.TrimSpace(req.To) == "" {
		return fmt.Errorf("notifier: recipient is required")
	}
	s.logger.InfoContext(ctx, "email notification", "to", req.To, "subject", req.Subject, "body", req.Body)
	return ErrNotImplemented
}

// SendTelegram logs the telegram request.
func (s *LoggerService) SendTelegram(ctx context.Context, req TelegramRequest) error {
	if strings.TrimSpace(req.ChatID) == "" {
		return fmt.Errorf("notifier: chat_id is required")
	}
	s.logger.InfoContext(ctx, "telegram notification", "chat_id", req.ChatID, "parse_mode", req.ParseMode)
	return ErrNotImplemented
}
