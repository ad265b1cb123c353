package notifier

import (
	"fmt"
	"net/smtp"

	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/logging"
)

// MailSink delivers alerts over SMTP with STARTTLS. Delivery runs in a
// goroutine so a slow relay never stalls the combat protocol.
type MailSink struct {
	cfg config.MailConfig
}

func NewMailSink(cfg config.MailConfig) *MailSink {
	return &MailSink{cfg: cfg}
}

func (s *MailSink) Send(subject, body string) {
	if !s.cfg.Enabled || s.cfg.Host == "" || s.cfg.To == "" {
		return
	}
	go s.deliver(subject, body)
}

func (s *MailSink) deliver(subject, body string) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.cfg.From, s.cfg.To, subject, body)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{s.cfg.To}, []byte(msg)); err != nil {
		logging.Error("Alert mail delivery failed: %v", err)
		return
	}
	logging.Info("Alert mail sent to %s", s.cfg.To)
}

// FanOut broadcasts one alert to every configured sink.
type FanOut struct {
	sinks []AlertSink
}

// AlertSink matches the orchestrator's notification surface.
type AlertSink interface {
	Send(subject, body string)
}

func NewFanOut(sinks ...AlertSink) *FanOut {
	return &FanOut{sinks: sinks}
}

func (f *FanOut) Send(subject, body string) {
	for _, sink := range f.sinks {
		sink.Send(subject, body)
	}
}
