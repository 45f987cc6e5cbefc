package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"PlannerEdu/internal/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPSender sends through an SMTP relay with STARTTLS and plain auth.
// gomail builds the MIME message. The session runs on a connection owned by
// Send, which closes it once ctx or the timeout expires.
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	timeout  time.Duration
	log      *zap.Logger
}

func NewSMTPSender(cfg *config.EmailConfig, log *zap.Logger) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPServer,
		port:     cfg.SMTPPort,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		timeout:  cfg.Timeout,
		log:      log,
	}
}

func (s *SMTPSender) message(to, subject, htmlBody string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return m
}

// Send runs one connect, auth, send and quit session. When ctx or the
// timeout expires the connection is closed, which aborts the session.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s.password == "" {
		return ErrCredentialsMissing
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := s.session(conn, s.message(to, subject, htmlBody)); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("smtp send to %s aborted: %w", to, ctx.Err())
		}
		return fmt.Errorf("failed to send email via smtp: %w", err)
	}
	s.log.Debug("email sent", zap.String("to", to), zap.String("transport", "smtp"))
	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	// implicit TLS on the submissions port, as gomail does
	if s.port == 465 {
		conn = tls.Client(conn, &tls.Config{ServerName: s.host})
	}
	return conn, nil
}

func (s *SMTPSender) session(conn net.Conn, msg *gomail.Message) error {
	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}
	if ok, _ := c.Extension("AUTH"); ok && s.user != "" {
		if err := c.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
			return err
		}
	}

	send := gomail.SendFunc(func(from string, rcpts []string, m io.WriterTo) error {
		if err := c.Mail(from); err != nil {
			return err
		}
		for _, rcpt := range rcpts {
			if err := c.Rcpt(rcpt); err != nil {
				return err
			}
		}
		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := m.WriteTo(w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
	if err := gomail.Send(send, msg); err != nil {
		return err
	}
	return c.Quit()
}
