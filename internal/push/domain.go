package push

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subscription is a browser push endpoint registered by a user.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscribeInput mirrors the browser PushSubscription JSON.
type SubscribeInput struct {
	Endpoint string `json:"endpoint" validate:"required,url,startswith=https://"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

// UnsubscribeInput identifies the endpoint to drop.
type UnsubscribeInput struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

// Message is the payload delivered to every subscriber.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	// SkipUserID suppresses delivery to the user who caused the notification.
	SkipUserID int64 `json:"skip_user_id,omitempty"`
}

// DefaultAllowedHosts covers the browser push services. A leading dot matches
// any subdomain.
var DefaultAllowedHosts = HostAllowlist{
	"fcm.googleapis.com",
	"updates.push.services.mozilla.com",
	"web.push.apple.com",
	".notify.windows.com",
}

// HostAllowlist restricts which hosts may receive push deliveries.
type HostAllowlist []string

// Allows reports whether endpoint is an https URL on an allowed host.
func (l HostAllowlist) Allows(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" || u.User != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, allowed := range l {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		switch {
		case allowed == "":
		case strings.HasPrefix(allowed, "."):
			if strings.HasSuffix(host, allowed) {
				return true
			}
		case host == allowed:
			return true
		}
	}
	return false
}
