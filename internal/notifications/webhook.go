package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjannette/fleetsim-backend/internal/httputil"
)

const (
	DefaultBotName     = "FleetSim"
	DefaultMinInterval = 2 * time.Second
	defaultBurst       = 5
)

// ErrThrottled is returned when a message was logged but not posted
// because the webhook rate limit was exhausted.
var ErrThrottled = errors.New("notification throttled")

type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	limiter    *rate.Limiter
}

// NewSender posts to webhookURL at most once per minInterval, with a small
// burst. A zero minInterval uses DefaultMinInterval.
func NewSender(webhookURL, botName string, minInterval time.Duration) *Sender {
	if botName == "" {
		botName = DefaultBotName
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(minInterval), defaultBurst),
	}
}

// Send is the fire-and-forget form of SendContext.
func (s *Sender) Send(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.SendContext(ctx, msg); err != nil {
		fmt.Printf("[CHAT ERROR] %v\n", err)
	}
}

// SendContext logs msg and, when a webhook is configured, posts it.
func (s *Sender) SendContext(ctx context.Context, msg string) error {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	fmt.Printf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if s.webhookURL == "" {
		return nil
	}
	if !s.limiter.Allow() {
		return ErrThrottled
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("send notification after retries: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
