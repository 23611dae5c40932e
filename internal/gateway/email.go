package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP settings for the email channel.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailGateway renders a template's variables into a plain-text body
// and sends it over SMTP. Email has no provider-side template store, so
// the subject doubles as the template id.
type EmailGateway struct {
	dialer *gomail.Dialer
	from   string
	logger *zerolog.Logger
}

func NewEmailGateway(cfg EmailConfig, logger *zerolog.Logger) (*EmailGateway, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, fmt.Errorf("email gateway: host, port and from address are required")
	}
	return &EmailGateway{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}, nil
}

func (g *EmailGateway) Channel() string { return "email" }

func (g *EmailGateway) Send(ctx context.Context, recipient, templateID string, vars map[int]string) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", templateID)
	m.SetBody("text/plain", renderBody(vars))

	if err := g.dialer.DialAndSend(m); err != nil {
		g.logger.Error().Err(err).Str("to", recipient).Msg("email send failed")
		return nil, fmt.Errorf("email gateway: send: %w", err)
	}

	// SMTP gives no provider id; synthesize one so delivery records
	// stay keyable.
	return &Result{MessageID: "email-" + uuid.NewString()}, nil
}

func renderBody(vars map[int]string) string {
	indexes := make([]int, 0, len(vars))
	for idx := range vars {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	parts := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		parts = append(parts, vars[idx])
	}
	return strings.Join(parts, "\n")
}
