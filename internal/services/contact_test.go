package services

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"alfredoptarigan/resumatch/internal/config"
	"alfredoptarigan/resumatch/internal/models"
)

type recordingMailer struct {
	to, subject, body string
	err               error
}

func (r *recordingMailer) SendHTML(ctx context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return r.err
}

type memoryContacts struct {
	saved []models.Contact
}

func (m *memoryContacts) Create(ctx context.Context, c *models.Contact) error {
	m.saved = append(m.saved, *c)
	return nil
}

func TestContactSubmit(t *testing.T) {
	mailer := &recordingMailer{}
	repo := &memoryContacts{}
	svc := NewContactService(repo, mailer, nil)

	contact, err := svc.Submit(context.Background(), models.ContactRequest{
		Name:    " Jane ",
		Email:   "jane@example.com",
		Message: "Hello <b>team</b>",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !strings.HasPrefix(contact.ContactID, "contact_") || len(contact.ContactID) != len("contact_")+12 {
		t.Fatalf("unexpected contact id %q", contact.ContactID)
	}
	if mailer.to != "jane@example.com" || mailer.subject != "Contact Form Submission from Jane" {
		t.Fatalf("unexpected mail %q %q", mailer.to, mailer.subject)
	}
	if !strings.Contains(mailer.body, "Hello &lt;b&gt;team&lt;/b&gt;") {
		t.Fatal("message must be HTML-escaped in the email body")
	}
	if len(repo.saved) != 1 || repo.saved[0].Name != "Jane" {
		t.Fatalf("contact not stored: %+v", repo.saved)
	}
}

func TestContactSubmit_Validation(t *testing.T) {
	cases := []models.ContactRequest{
		{Email: "a@b.co", Message: "m"},
		{Name: "n", Message: "m"},
		{Name: "n", Email: "not-an-address", Message: "m"},
		{Name: "n", Email: "Jane <jane@example.com>", Message: "m"},
		{Name: "n", Email: "a@b.co"},
		{Name: "n\r\nBcc: x@y.z", Email: "a@b.co", Message: "m"},
		{Name: "n", Email: "a@b.co", Message: strings.Repeat("x", maxContactMessage+1)},
	}

	for _, req := range cases {
		mailer := &recordingMailer{}
		repo := &memoryContacts{}
		_, err := NewContactService(repo, mailer, nil).Submit(context.Background(), req)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("%+v: expected ValidationError, got %v", req, err)
		}
		if mailer.to != "" || len(repo.saved) != 0 {
			t.Fatalf("%+v: invalid submission must not be mailed or stored", req)
		}
	}
}

func TestContactSubmit_MailFailureStoresNothing(t *testing.T) {
	repo := &memoryContacts{}
	svc := NewContactService(repo, &recordingMailer{err: ErrMailerNotConfigured}, nil)

	_, err := svc.Submit(context.Background(), models.ContactRequest{Name: "n", Email: "a@b.co", Message: "m"})
	if !errors.Is(err, ErrMailerNotConfigured) {
		t.Fatalf("expected ErrMailerNotConfigured, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatal("contact should not be stored when mail fails")
	}
}

func TestSMTPMailer_MissingCredentials(t *testing.T) {
	err := NewSMTPMailer(config.EmailConfig{Host: "smtp.example.com", Port: 587}).SendHTML(context.Background(), "a@b.co", "s", "b")
	if !errors.Is(err, ErrMailerNotConfigured) {
		t.Fatalf("expected ErrMailerNotConfigured, got %v", err)
	}
}

func TestComposeHTMLMessage(t *testing.T) {
	msg := string(composeHTMLMessage("noreply@example.com", "jane@example.com", "Hi", "<p>x</p>", time.Unix(0, 0).UTC()))

	for _, header := range []string{
		"From: noreply@example.com\r\n",
		"To: jane@example.com\r\n",
		"Subject: Hi\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: text/html",
	} {
		if !strings.Contains(msg, header) {
			t.Errorf("message missing %q", header)
		}
	}
	if !strings.HasSuffix(msg, "\r\n\r\n<p>x</p>") {
		t.Errorf("body not appended after headers: %q", msg)
	}
}

type fakeSMTPServer struct {
	ln net.Listener

	mu       sync.Mutex
	commands []string
	data     []string
}

// startFakeSMTPServer answers one plain SMTP session without STARTTLS or AUTH.
func startFakeSMTPServer(t *testing.T) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	s := &fakeSMTPServer{ln: ln}
	go s.serve()
	return s
}

func (s *fakeSMTPServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 fake ESMTP ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		switch strings.ToUpper(strings.Fields(line)[0]) {
		case "EHLO", "HELO":
			tp.PrintfLine("250 fake")
		case "MAIL", "RCPT", "RSET", "NOOP":
			tp.PrintfLine("250 OK")
		case "DATA":
			tp.PrintfLine("354 end with <CRLF>.<CRLF>")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = lines
			s.mu.Unlock()
			tp.PrintfLine("250 queued")
		case "QUIT":
			tp.PrintfLine("221 bye")
			return
		default:
			tp.PrintfLine("502 not implemented")
		}
	}
}

func (s *fakeSMTPServer) port(t *testing.T) int {
	t.Helper()
	return s.ln.Addr().(*net.TCPAddr).Port
}

func TestSMTPMailer_Delivers(t *testing.T) {
	server := startFakeSMTPServer(t)
	mailer := NewSMTPMailer(config.EmailConfig{
		Host:     "127.0.0.1",
		Port:     server.port(t),
		User:     "noreply@example.com",
		Password: "secret",
	})

	if err := mailer.SendHTML(context.Background(), "jane@example.com", "Hi", "<p>x</p>"); err != nil {
		t.Fatalf("send: %v", err)
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	commands := strings.Join(server.commands, "\n")
	for _, want := range []string{"MAIL FROM:<noreply@example.com>", "RCPT TO:<jane@example.com>", "QUIT"} {
		if !strings.Contains(commands, want) {
			t.Errorf("server never saw %q in %q", want, commands)
		}
	}
	if len(server.data) == 0 || server.data[len(server.data)-1] != "<p>x</p>" {
		t.Fatalf("unexpected message body %q", server.data)
	}
}

func TestSMTPMailer_SilentServerHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	held := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		held <- conn // accepted, never greeted
	}()
	defer func() {
		select {
		case conn := <-held:
			conn.Close()
		default:
		}
	}()

	mailer := NewSMTPMailer(config.EmailConfig{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		User:     "noreply@example.com",
		Password: "secret",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- mailer.SendHTML(ctx, "jane@example.com", "Hi", "<p>x</p>") }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from a server that never greets")
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Fatalf("send returned after %s", elapsed)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("send still blocked long after the context deadline")
	}
}
