package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WhatsAppConfig holds the messaging provider credentials. All fields
// are required; the constructor fails fast instead of deferring the
// error to the first send.
type WhatsAppConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
}

// WhatsAppGateway sends template messages through the provider's REST
// API with a form-encoded POST.
type WhatsAppGateway struct {
	cfg    WhatsAppConfig
	client *http.Client
	logger *zerolog.Logger
}

func NewWhatsAppGateway(cfg WhatsAppConfig, logger *zerolog.Logger) (*WhatsAppGateway, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" || cfg.BaseURL == "" {
		return nil, fmt.Errorf("whatsapp gateway: account sid, auth token, from number and base url are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WhatsAppGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

func (g *WhatsAppGateway) Channel() string { return "whatsapp" }

func (g *WhatsAppGateway) Send(ctx context.Context, recipient, templateID string, vars map[int]string) (*Result, error) {
	contentVars, err := encodeVars(vars)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("From", "whatsapp:"+g.cfg.FromNumber)
	form.Set("To", "whatsapp:"+recipient)
	form.Set("ContentSid", templateID)
	form.Set("ContentVariables", contentVars)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("whatsapp gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(g.cfg.AccountSID, g.cfg.AuthToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp gateway: send: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= 400 {
		g.logger.Error().Int("status", resp.StatusCode).Str("to", recipient).Msg("whatsapp send rejected")
		return nil, fmt.Errorf("whatsapp gateway: provider returned status %d", resp.StatusCode)
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.SID == "" {
		// The message went out even if the response body is unusable;
		// delivery tracking just loses this one.
		g.logger.Warn().Str("to", recipient).Msg("whatsapp send succeeded but response sid missing")
		return &Result{}, nil
	}

	return &Result{MessageID: parsed.SID}, nil
}

// encodeVars renders the positional variables as the JSON object the
// provider expects: {"1": "...", "2": "..."}. The numeric-key
// convention matches the externally registered templates and must not
// change.
func encodeVars(vars map[int]string) (string, error) {
	keyed := make(map[string]string, len(vars))
	for idx, val := range vars {
		if idx < 1 {
			return "", fmt.Errorf("whatsapp gateway: variable index %d out of range, numbering starts at 1", idx)
		}
		keyed[strconv.Itoa(idx)] = val
	}
	out, err := json.Marshal(keyed)
	if err != nil {
		return "", fmt.Errorf("whatsapp gateway: encode variables: %w", err)
	}
	return string(out), nil
}
