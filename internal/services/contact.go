package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/config"
	"alfredoptarigan/resumatch/internal/logger"
	"alfredoptarigan/resumatch/internal/models"
	"alfredoptarigan/resumatch/internal/repositories"
)

const maxContactMessage = 5000

var contactTemplate = template.Must(template.New("contact").Parse(`<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px;">
      <h2 style="color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px;">New Contact Form Submission</h2>
      <div style="margin: 20px 0;">
        <p><strong>From:</strong> {{.Name}}</p>
        <p><strong>Email:</strong> {{.Email}}</p>
      </div>
      <div style="background-color: #f8f9fa; padding: 15px; border-left: 4px solid #3498db; margin: 20px 0;">
        <h3 style="margin-top: 0; color: #2c3e50;">Message:</h3>
        <p style="white-space: pre-wrap;">{{.Message}}</p>
      </div>
      <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 12px; color: #7f8c8d;">
        <p>This is an automated message from the ResuMatch contact form.</p>
      </div>
    </div>
  </body>
</html>`))

const defaultMailTimeout = 30 * time.Second

type Mailer interface {
	SendHTML(ctx context.Context, to, subject, body string) error
}

type smtpMailer struct {
	cfg     config.EmailConfig
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPMailer(cfg config.EmailConfig) Mailer {
	dialer := &net.Dialer{}
	return &smtpMailer{cfg: cfg, timeout: defaultMailTimeout, dial: dialer.DialContext}
}

// SendHTML implements Mailer. The whole SMTP exchange is bounded by ctx and
// the mailer timeout; STARTTLS and AUTH are used when the server offers them.
func (m *smtpMailer) SendHTML(ctx context.Context, to, subject, body string) error {
	if m.cfg.User == "" || m.cfg.Password == "" {
		return ErrMailerNotConfigured
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	msg := composeHTMLMessage(m.cfg.User, to, subject, body, time.Now())
	if err := m.deliver(ctx, to, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *smtpMailer) deliver(ctx context.Context, to string, msg []byte) error {
	conn, err := m.dial(ctx, "tcp", net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)))
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
			return err
		}
	}

	if err := client.Mail(m.cfg.User); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func composeHTMLMessage(from, to, subject, body string, date time.Time) []byte {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", date.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)
	return msg.Bytes()
}

type ContactService interface {
	Submit(ctx context.Context, req models.ContactRequest) (*models.Contact, error)
}

type contactService struct {
	repo   repositories.ContactRepository
	mailer Mailer
	logger *zap.Logger
	now    func() time.Time
}

func NewContactService(repo repositories.ContactRepository, mailer Mailer, log *zap.Logger) ContactService {
	return &contactService{
		repo:   repo,
		mailer: mailer,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// Submit mails the submission back to the sender and then stores it.
func (s *contactService) Submit(ctx context.Context, req models.ContactRequest) (*models.Contact, error) {
	req, err := validateContact(req)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := contactTemplate.Execute(&body, req); err != nil {
		return nil, fmt.Errorf("failed to render contact email: %w", err)
	}

	if err := s.mailer.SendHTML(ctx, req.Email, "Contact Form Submission from "+req.Name, body.String()); err != nil {
		return nil, err
	}

	contact := &models.Contact{
		ContactID: newPrefixedID("contact_"),
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact form submitted", zap.String("contact_id", contact.ContactID))
	return contact, nil
}

func validateContact(req models.ContactRequest) (models.ContactRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)

	switch {
	case req.Name == "":
		return req, &ValidationError{Field: "name", Message: "is required"}
	case strings.ContainsAny(req.Name, "\r\n"):
		return req, &ValidationError{Field: "name", Message: "must be a single line"}
	case req.Email == "":
		return req, &ValidationError{Field: "email", Message: "is required"}
	case req.Message == "":
		return req, &ValidationError{Field: "message", Message: "is required"}
	case len(req.Message) > maxContactMessage:
		return req, &ValidationError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", maxContactMessage)}
	}

	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return req, &ValidationError{Field: "email", Message: "is not a valid address"}
	}

	return req, nil
}
