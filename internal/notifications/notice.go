package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
)

// Kind is the presentation style of a notice.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

const (
	minTransient     = 2500 * time.Millisecond
	maxTransient     = 3500 * time.Millisecond
	DefaultTransient = 3 * time.Second
)

// ClampDuration keeps auto-dismiss durations inside the storefront window.
func ClampDuration(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTransient
	case d < minTransient:
		return minTransient
	case d > maxTransient:
		return maxTransient
	}
	return d
}

// Notice is one user-facing message for a checkout session. Duration, when
// set, overrides the configured auto-dismiss duration.
type Notice struct {
	ID          string        `json:"id"`
	Scope       string        `json:"-"`
	Kind        Kind          `json:"kind"`
	Message     string        `json:"message"`
	Dismissible bool          `json:"dismissible"`
	Blocking    bool          `json:"blocking"`
	Redirect    string        `json:"redirect,omitempty"`
	AutoDismiss bool          `json:"autoDismiss"`
	Duration    time.Duration `json:"-"`
	CreatedAt   time.Time     `json:"createdAt"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
}

// Transient builds a dismissible notice that expires on its own.
func Transient(scope string, kind Kind, message string) Notice {
	return Notice{
		Scope:       scope,
		Kind:        kind,
		Message:     message,
		Dismissible: true,
		AutoDismiss: true,
	}
}

// Persistent builds a notice that stays until dismissed.
func Persistent(scope string, kind Kind, message string) Notice {
	return Notice{
		Scope:       scope,
		Kind:        kind,
		Message:     message,
		Dismissible: true,
	}
}

// Blocking builds a notice that interrupts the flow and points the client at
// redirect.
func Blocking(scope, message, redirect string) Notice {
	return Notice{
		Scope:    scope,
		Kind:     KindError,
		Message:  message,
		Blocking: true,
		Redirect: redirect,
	}
}

// ForFailure picks the notice for a classified failure: auth failures block
// and redirect, validation failures persist, transient ones expire.
func ForFailure(scope string, f *failure.Classified, redirect string) Notice {
	switch f.Category {
	case failure.CategoryAuth:
		return Blocking(scope, f.Message, redirect)
	case failure.CategoryValidation:
		return Persistent(scope, KindWarning, f.Message)
	default:
		return Transient(scope, KindError, f.Message)
	}
}

// stamp assigns identity and expiry at delivery time.
func (n Notice) stamp(now time.Time, transient time.Duration) Notice {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.AutoDismiss {
		d := n.Duration
		if d == 0 {
			d = transient
		}
		expires := n.CreatedAt.Add(ClampDuration(d))
		n.ExpiresAt = &expires
	}
	return n
}

// Expired reports whether n should no longer be shown at now.
func (n Notice) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}
