package email

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"

	"github.com/jwalitptl/labops-api/internal/config"
	"github.com/jwalitptl/labops-api/internal/model"
)

// Service sends operational alert mail. It is fire-and-forget; a mail
// failure is logged and never propagated into the calling workflow.
type Service struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

func NewService(cfg config.SMTPConfig) *Service {
	return &Service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.AlertTo,
	}
}

// NotifySyncFailure mails the on-call list about sync targets stuck in
// Failed after a convergence run.
func (s *Service) NotifySyncFailure(targets []*model.SyncTarget) {
	if len(s.to) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("The following sync targets failed to converge:\n\n")
	for _, target := range targets {
		b.WriteString(fmt.Sprintf("  - %s", target.Scope))
		if target.ErrorLog != nil {
			b.WriteString(": " + *target.ErrorLog)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nConfiguration changes will not reach these services until the failure is resolved.\n")

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", fmt.Sprintf("[labops] %d sync target(s) failed to converge", len(targets)))
	m.SetBody("text/plain", b.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		log.Error().Err(err).Msg("failed to send sync failure alert")
	}
}
