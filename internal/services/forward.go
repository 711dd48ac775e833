package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Cyvadra/stockwatch/internal/config"
	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/go-resty/resty/v2"
	"gopkg.in/gomail.v2"
)

const defaultTelegramAPI = "https://api.telegram.org"

// AlertNotifier delivers newly created alerts somewhere outside the process
type AlertNotifier interface {
	Notify(ctx context.Context, alerts []models.Alert) error
}

// Mailer sends composed messages. *gomail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// ForwardService pushes alerts to the configured downstream endpoints
type ForwardService struct {
	client    *resty.Client
	endpoints []config.EndpointConfig
	email     config.EmailConfig
	mailer    Mailer
	logger    *slog.Logger
}

// NewForwardService creates a new forward service
func NewForwardService(endpoints []config.EndpointConfig, email config.EmailConfig, log *slog.Logger) *ForwardService {
	s := &ForwardService{
		client:    resty.New().SetTimeout(10 * time.Second),
		endpoints: endpoints,
		email:     email,
		logger:    logger.OrDefault(log),
	}
	if email.Host != "" {
		s.mailer = gomail.NewDialer(email.Host, email.Port, email.Username, email.Password)
	}
	return s
}

// SetMailer replaces the SMTP sender
func (s *ForwardService) SetMailer(m Mailer) {
	s.mailer = m
}

// Notify sends the alerts to every active endpoint. Delivery is best effort:
// every endpoint is tried and the failures are joined.
func (s *ForwardService) Notify(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	var errs []error
	for _, endpoint := range s.endpoints {
		if !endpoint.IsActive {
			continue
		}
		if err := s.forwardToEndpoint(ctx, alerts, endpoint); err != nil {
			alertForwardFailuresTotal.WithLabelValues(endpoint.Type).Inc()
			s.logger.Warn("failed to forward alerts", "endpoint", endpoint.Name, "type", endpoint.Type, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", endpoint.Name, err))
		}
	}
	return errors.Join(errs...)
}

// forwardToEndpoint forwards alerts to a specific endpoint
func (s *ForwardService) forwardToEndpoint(ctx context.Context, alerts []models.Alert, endpoint config.EndpointConfig) error {
	switch endpoint.Type {
	case "telegram":
		return s.forwardToTelegram(ctx, alerts, endpoint)
	case "webhook":
		return s.forwardToWebhook(ctx, alerts, endpoint)
	case "email":
		return s.forwardToEmail(alerts)
	default:
		return fmt.Errorf("unsupported endpoint type: %s", endpoint.Type)
	}
}

// forwardToTelegram sends one message summarising all alerts
func (s *ForwardService) forwardToTelegram(ctx context.Context, alerts []models.Alert, endpoint config.EndpointConfig) error {
	base := strings.TrimRight(endpoint.URL, "/")
	if base == "" {
		base = defaultTelegramAPI
	}

	payload := map[string]interface{}{
		"chat_id":    endpoint.ChatID,
		"text":       formatTelegramMessage(alerts),
		"parse_mode": "HTML",
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", base, endpoint.Token))
	if err != nil {
		return fmt.Errorf("telegram API request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

// forwardToWebhook posts the alerts as JSON
func (s *ForwardService) forwardToWebhook(ctx context.Context, alerts []models.Alert, endpoint config.EndpointConfig) error {
	req := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{"alerts": alerts})
	if endpoint.Token != "" {
		req.SetAuthToken(endpoint.Token)
	}

	resp, err := req.Post(endpoint.URL)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

// forwardToEmail mails a digest to the configured recipients
func (s *ForwardService) forwardToEmail(alerts []models.Alert) error {
	if s.mailer == nil {
		return errors.New("smtp is not configured")
	}
	if len(s.email.To) == 0 {
		return errors.New("no email recipients configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.email.From)
	m.SetHeader("To", s.email.To...)
	m.SetHeader("Subject", fmt.Sprintf("[stockwatch] %d stock consumption alert(s)", len(alerts)))
	m.SetBody("text/plain", formatPlainMessage(alerts))

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// formatTelegramMessage formats the alerts for Telegram
func formatTelegramMessage(alerts []models.Alert) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚨 <b>Stock consumption alerts (%d)</b>\n", len(alerts)))
	for _, a := range alerts {
		d := a.Details.Data()
		sb.WriteString(fmt.Sprintf("\n📦 <b>%s</b> @ %s [%s]\n",
			html.EscapeString(a.Sku), html.EscapeString(a.RegionName), strings.ToUpper(a.AlertLevel.String())))
		sb.WriteString(fmt.Sprintf("📉 %d → %d over %.0f days (%.1f/day, %.2f%%/day)\n",
			d.StartQty, d.EndQty, d.Days, d.DailyConsumption, d.ConsumptionRate*100))
	}
	return sb.String()
}

// formatPlainMessage formats the alerts for email
func formatPlainMessage(alerts []models.Alert) string {
	var sb strings.Builder
	for _, a := range alerts {
		d := a.Details.Data()
		sb.WriteString(fmt.Sprintf("%s / %s (%s): level %s, %d -> %d over %.0f days, %.2f per day, %.2f%% per day\n",
			a.Sku, a.RegionName, a.RegionID, a.AlertLevel, d.StartQty, d.EndQty, d.Days, d.DailyConsumption, d.ConsumptionRate*100))
	}
	return sb.String()
}
