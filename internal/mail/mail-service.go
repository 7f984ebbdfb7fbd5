package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"
)

const defaultTemplatePath = "internal/templates/otp-email.html"

type MailService struct {
	gmailUser    string
	gmailAppPass string
	mailFrom     string
	mailFromName string
	subject      string
	templatePath string
}

func NewMailService(
	gmailUser string,
	gmailAppPass string,
	mailFrom string,
	mailFromName string,
	subject string,
	templatePath string,
) *MailService {
	if templatePath == "" {
		templatePath = defaultTemplatePath
	}
	return &MailService{
		gmailUser:    gmailUser,
		gmailAppPass: gmailAppPass,
		mailFrom:     mailFrom,
		mailFromName: mailFromName,
		subject:      subject,
		templatePath: templatePath,
	}
}

func (s *MailService) SendOtpEmail(to string, code string, expiresAt string) error {

	htmlBody, err := s.renderOtpTemplate(code, expiresAt)
	if err != nil {
		return err
	}

	fromHeader := fmt.Sprintf("%s <%s>", s.mailFromName, s.mailFrom)

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", s.subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		htmlBody,
	}, "\r\n")

	log.Printf("[MAIL] smtp sending to=%s via=%s", to, "smtp.gmail.com:587")

	err = s.sendSMTPWithTimeout(to, []byte(msg))
	if err != nil {
		return err
	}

	log.Printf("[MAIL] sent to=%s", to)
	return nil
}

func (s *MailService) renderOtpTemplate(code string, expiresAt string) (string, error) {
	tmpl, err := template.ParseFiles(s.templatePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]string{
		"Code":      code,
		"ExpiresAt": expiresAt,
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *MailService) sendSMTPWithTimeout(to string, msg []byte) error {
	addr := "smtp.gmail.com:587"

	conn, err := net.DialTimeout("tcp", addr, 8*time.Second)
	if err != nil {
		return err
	}
	// deadline covers the whole SMTP conversation
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))

	c, err := smtp.NewClient(conn, "smtp.gmail.com")
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()

	// STARTTLS
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: "smtp.gmail.com"}); err != nil {
			return err
		}
	}
	// Auth
	auth := smtp.PlainAuth("", s.gmailUser, s.gmailAppPass, "smtp.gmail.com")
	if err := c.Auth(auth); err != nil {
		return err
	}

	// From/To
	if err := c.Mail(s.mailFrom); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	// Data
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
