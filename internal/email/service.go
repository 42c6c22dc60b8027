// Package email sends transactional mail over SMTP. When no SMTP host
// is configured every send is a silent no-op, so the rest of the app
// never has to care whether mail is wired up.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

func NewService(config Config) *Service {
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   smtp.PlainAuth("", config.Username, config.Password, config.Host),
	}
}

func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) SendVerificationEmail(to, firstName, verifyURL string) error {
	html, err := renderTemplate(verificationTemplate, templateData{
		FirstName: firstName,
		ActionURL: verifyURL,
	})
	if err != nil {
		return fmt.Errorf("render verification template: %w", err)
	}
	return s.sendHTML([]string{to}, "Verify your Lucid account", html)
}

func (s *Service) SendPasswordResetEmail(to, firstName, resetURL string) error {
	html, err := renderTemplate(passwordResetTemplate, templateData{
		FirstName: firstName,
		ActionURL: resetURL,
	})
	if err != nil {
		return fmt.Errorf("render password reset template: %w", err)
	}
	return s.sendHTML([]string{to}, "Reset your Lucid password", html)
}

func (s *Service) SendWelcomeEmail(to, firstName, appURL string) error {
	html, err := renderTemplate(welcomeTemplate, templateData{
		FirstName: firstName,
		ActionURL: appURL,
	})
	if err != nil {
		return fmt.Errorf("render welcome template: %w", err)
	}
	return s.sendHTML([]string{to}, "Welcome to Lucid", html)
}

func (s *Service) sendHTML(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return nil
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	const boundary = "boundary-lucid"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

type templateData struct {
	FirstName string
	ActionURL string
}

func renderTemplate(tmpl string, data templateData) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
