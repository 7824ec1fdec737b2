// Package mail delivers account notifications over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"text/template"

	"github.com/dajohi/goemail"
	account "github.com/goliatone/go-account"
)

// Config holds the SMTP settings. Mail is disabled when Host, User or
// Password is empty.
type Config struct {
	Host       string
	User       string
	Password   string
	From       string
	CertPath   string
	SkipVerify bool
}

// sender is the part of goemail.SMTP used by the client
type sender interface {
	Send(msg *goemail.Message) error
}

// Client sends activation and reset emails.
//
// Client implements account.Notifier.
type Client struct {
	smtp        sender
	mailName    string
	mailAddress string
	disabled    bool
	logger      account.Logger
}

var _ account.Notifier = (*Client)(nil)

// NewClient returns a new client
func NewClient(cfg Config, logger account.Logger) (*Client, error) {
	if logger == nil {
		logger = account.NopLogger{}
	}

	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		logger.Info("Mail: DISABLED")
		return &Client{disabled: true, logger: logger}, nil
	}

	h := fmt.Sprintf("smtps://%v:%v@%v", url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host)
	u, err := url.Parse(h)
	if err != nil {
		return nil, err
	}

	logger.Info("Mail host: smtps://%v:[password]@%v", cfg.User, cfg.Host)

	a, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, err
	}

	logger.Info("Mail address: %v", a.String())

	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.SkipVerify,
	}
	if cfg.CertPath != "" {
		cert, err := os.ReadFile(cfg.CertPath)
		if err != nil {
			return nil, err
		}
		certPool, err := x509.SystemCertPool()
		if err != nil {
			certPool = x509.NewCertPool()
		}
		certPool.AppendCertsFromPEM(cert)
		tlsConfig.RootCAs = certPool
	}

	smtp, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, err
	}

	return &Client{
		smtp:        smtp,
		mailName:    a.Name,
		mailAddress: a.Address,
		logger:      logger,
	}, nil
}

// IsEnabled returns whether the mail server is enabled
func (c *Client) IsEnabled() bool {
	return !c.disabled
}

// SendTo sends an email to a list of recipient addresses
func (c *Client) SendTo(subject, body string, recipients []string) error {
	if c.disabled || len(recipients) == 0 {
		return nil
	}

	msg := goemail.NewMessage(c.mailAddress, subject, body)
	msg.SetName(c.mailName)

	for _, v := range recipients {
		msg.AddBCC(v)
	}

	return c.smtp.Send(msg)
}

// Send renders the notification template and mails it. Disabled
// clients log the link instead.
func (c *Client) Send(ctx context.Context, n account.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.disabled {
		c.logger.Info("mail disabled, %s link for %s: %s", n.Kind, n.To, n.Link)
		return nil
	}

	subject, tpl, err := templateFor(n.Kind)
	if err != nil {
		return err
	}

	body, err := createBody(tpl, n)
	if err != nil {
		return err
	}

	return c.SendTo(subject, body, []string{n.To})
}

func createBody(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
