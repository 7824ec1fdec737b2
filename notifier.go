package account

import (
	"context"
	"fmt"
	"net/url"
)

// NotificationKind selects the message template
type NotificationKind string

const (
	NotificationActivation    NotificationKind = "activation"
	NotificationPasswordReset NotificationKind = "password_reset"
)

// Notification is a link delivered to an account's email address
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	To        string           `json:"to"`
	AccountID string           `json:"account_id"`
	UID       string           `json:"uid"`
	Token     string           `json:"token"`
	Link      string           `json:"link"`
}

// Notifier delivers lifecycle notifications
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

// LogNotifier writes notifications to the logger instead of sending them
type LogNotifier struct {
	Logger Logger
}

func (l LogNotifier) Send(_ context.Context, n Notification) error {
	normalizeLogger(l.Logger).Info("notification %s to=%s link=%s", n.Kind, n.To, n.Link)
	return nil
}

// LinkBuilder renders the links embedded in notifications
type LinkBuilder struct {
	siteURL string
	prefix  string
}

func NewLinkBuilder(cfg Config) LinkBuilder {
	return LinkBuilder{
		siteURL: cfg.GetSiteURL(),
		prefix:  cfg.GetRoutePrefix(),
	}
}

func (b LinkBuilder) ActivationLink(uid, token string) string {
	return b.build("activate", uid, token)
}

func (b LinkBuilder) ResetLink(uid, token string) string {
	return b.build("reset-password", uid, token)
}

func (b LinkBuilder) build(segment, uid, token string) string {
	return fmt.Sprintf("%s%s/%s/%s/%s/",
		b.siteURL,
		b.prefix,
		segment,
		url.PathEscape(uid),
		url.PathEscape(token),
	)
}
