package aqi

import (
	"fmt"
	"net/smtp"

	"github.com/itemlabs/go-items-api/internal/config"
)

// SendReport mails the report body over authenticated SMTP with STARTTLS.
func SendReport(cfg config.AQIConfig, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Daily AQI Report\r\n\r\n%s",
		cfg.From, cfg.To, body)
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.SMTPHost)
	addr := cfg.SMTPHost + ":" + cfg.SMTPPort
	return smtp.SendMail(addr, auth, cfg.From, []string{cfg.To}, []byte(msg))
}
