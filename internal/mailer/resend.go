package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/griebenowschalk/manga-tracker/pkg/errors"
	"github.com/griebenowschalk/manga-tracker/pkg/httpclient"
)

const defaultResendBaseURL = "https://api.resend.com"

// ResendMailer sends transactional email through the Resend HTTP API. Calls
// go through a circuit breaker so a provider outage does not pile up
// in-flight requests.
type ResendMailer struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	apiKey  string
	from    string
	logger  *slog.Logger
}

// NewResendMailer creates a Resend-backed mailer.
func NewResendMailer(client *httpclient.CircuitBreakerClient, apiKey, from string, logger *slog.Logger) *ResendMailer {
	return &ResendMailer{
		client:  client,
		baseURL: defaultResendBaseURL,
		apiKey:  apiKey,
		from:    from,
		logger:  logger,
	}
}

// WithBaseURL overrides the API base URL. Used in tests.
func (m *ResendMailer) WithBaseURL(url string) *ResendMailer {
	m.baseURL = url
	return m
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send delivers the message via the Resend API. Any failure is reported as an
// email delivery error so handlers map it to a single status code.
func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(ctx, req)
	if err != nil {
		return apperrors.EmailDeliveryFailed(fmt.Errorf("send email via resend: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		m.logger.ErrorContext(ctx, "resend rejected email",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return apperrors.EmailDeliveryFailed(fmt.Errorf("resend returned status %d", resp.StatusCode))
	}

	m.logger.DebugContext(ctx, "email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)

	return nil
}
