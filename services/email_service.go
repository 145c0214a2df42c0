package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"

	"github.com/Dosada05/tournament-arena/config"
	"github.com/Dosada05/tournament-arena/models"
)

var coinDecisionTemplate = template.Must(template.New("coin_decision").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Привет, {{.Username}}!</p>
<p>Your {{.Kind}} request for <b>{{.Amount}}</b> coins was <b>{{.Status}}</b>.</p>
{{if .DecisionDate}}<p>Decision date: {{.DecisionDate}}</p>{{end}}
<p>Request id: {{.RequestID}}</p>
</body>
</html>`))

type EmailService struct {
	cfg    *config.Config
	dialer net.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

// SendEmail отправляет html-письмо. Порт 465 использует прямое TLS-соединение, остальные STARTTLS.
func (s *EmailService) SendEmail(ctx context.Context, to []string, subject string, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg := []byte("To: " + strings.Join(to, ", ") + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := net.JoinHostPort(s.cfg.SMTPHost, fmt.Sprint(s.cfg.SMTPPort))
	tlsconfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("ошибка соединения SMTP: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if s.cfg.SMTPPort == 465 {
		conn = tls.Client(conn, tlsconfig)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
	}
	defer client.Close()

	if s.cfg.SMTPPort != 465 {
		if err := client.StartTLS(tlsconfig); err != nil {
			return fmt.Errorf("ошибка команды STARTTLS: %w", err)
		}
	}
	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("ошибка аутентификации SMTP: %w", err)
		}
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("ошибка MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("ошибка RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("ошибка команды DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("ошибка записи сообщения: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия DATA: %w", err)
	}
	return client.Quit()
}

// SendCoinDecision реализует DecisionMailer.
func (s *EmailService) SendCoinDecision(ctx context.Context, to string, username string, req models.CoinRequest) error {
	subject, body, err := renderCoinDecision(username, req)
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, []string{to}, subject, body)
}

func renderCoinDecision(username string, req models.CoinRequest) (string, string, error) {
	data := struct {
		Username     string
		Kind         string
		Amount       int64
		Status       string
		DecisionDate string
		RequestID    string
	}{
		Username:  username,
		Kind:      string(req.Kind),
		Amount:    req.AmountCoins,
		Status:    string(req.Status),
		RequestID: req.ID,
	}
	if req.DecisionDate != nil {
		data.DecisionDate = req.DecisionDate.Format("2006-01-02 15:04 MST")
	}

	var body bytes.Buffer
	if err := coinDecisionTemplate.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("ошибка выполнения шаблона письма: %w", err)
	}
	subject := fmt.Sprintf("Coin request %s: %s", req.Kind, req.Status)
	return subject, body.String(), nil
}
