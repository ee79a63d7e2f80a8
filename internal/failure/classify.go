package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
)

// Category is the user-facing bucket a failure falls into.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryAuth       Category = "auth"
	CategoryNetwork    Category = "network"
	CategoryServer     Category = "server"
)

const (
	msgValidation = "please check your input and try again"
	msgAuth       = "please log in to continue"
	msgNetwork    = "network error, please check your connection and try again"
	msgServer     = "something went wrong, please try again later"
)

var genericMessages = map[Category]string{
	CategoryValidation: msgValidation,
	CategoryAuth:       msgAuth,
	CategoryNetwork:    msgNetwork,
	CategoryServer:     msgServer,
}

// Classified is a failure that has been sorted into a Category with the
// message the actor should see.
type Classified struct {
	Category Category
	Message  string
	Status   int
	cause    error
}

func (c *Classified) Error() string {
	if c == nil {
		return ""
	}
	if c.cause != nil {
		return fmt.Sprintf("%s failure: %s: %v", c.Category, c.Message, c.cause)
	}
	return fmt.Sprintf("%s failure: %s", c.Category, c.Message)
}

func (c *Classified) Unwrap() error {
	if c == nil {
		return nil
	}
	return c.cause
}

func (c *Classified) UpstreamStatus() int     { return c.Status }
func (c *Classified) CategoryName() string    { return string(c.Category) }
func (c *Classified) UpstreamMessage() string { return c.Message }

// Retryable reports whether re-triggering the same action may succeed.
func (c *Classified) Retryable() bool {
	return c != nil && c.Category == CategoryNetwork
}

// Code maps the category onto the service error codes.
func (c *Classified) Code() pkgerrors.Code {
	if c == nil {
		return pkgerrors.CodeInternal
	}
	switch c.Category {
	case CategoryValidation:
		return pkgerrors.CodeValidation
	case CategoryAuth:
		return pkgerrors.CodeUnauthorized
	case CategoryNetwork:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeUpstream
	}
}

// AsError converts the failure into a coded error suitable for responses.
func (c *Classified) AsError() *pkgerrors.Error {
	if c == nil {
		return nil
	}
	return pkgerrors.Wrap(c.Code(), c, c.Message)
}

func newClassified(category Category, message string, status int, cause error) *Classified {
	message = strings.TrimSpace(message)
	if message == "" {
		message = genericMessages[category]
	}
	return &Classified{Category: category, Message: message, Status: status, cause: cause}
}

// Validation builds a user-correctable failure.
func Validation(message string) *Classified {
	return newClassified(CategoryValidation, message, 0, nil)
}

// Auth builds a failure that requires the actor to log in again.
func Auth(message string) *Classified {
	return newClassified(CategoryAuth, message, 0, nil)
}

// Network builds a transient failure around a transport error.
func Network(cause error) *Classified {
	return newClassified(CategoryNetwork, "", 0, cause)
}

// FromResponse classifies a non-2xx gateway response. A structured message in
// the body wins over the generic one.
func FromResponse(status int, body []byte) *Classified {
	category := categoryForStatus(status)
	return newClassified(category, messageFromBody(body), status, fmt.Errorf("upstream status %d", status))
}

// Classify maps any error onto a Classified failure. Unknown shapes become
// server failures with the generic message.
func Classify(err error) *Classified {
	if err == nil {
		return nil
	}

	var classified *Classified
	if errors.As(err, &classified) {
		return classified
	}

	if typed := pkgerrors.As(err); typed != nil {
		return newClassified(categoryForCode(typed.Code()), typed.Message(), 0, err)
	}

	if isTransport(err) {
		return newClassified(CategoryNetwork, "", 0, err)
	}

	return newClassified(CategoryServer, "", 0, err)
}

func categoryForStatus(status int) Category {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return CategoryAuth
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CategoryNetwork
	}
	if status >= 400 && status < 500 {
		return CategoryValidation
	}
	return CategoryServer
}

func categoryForCode(code pkgerrors.Code) Category {
	switch code {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict, pkgerrors.CodeStateConflict:
		return CategoryValidation
	case pkgerrors.CodeUnauthorized, pkgerrors.CodeForbidden:
		return CategoryAuth
	case pkgerrors.CodeDependency:
		return CategoryNetwork
	default:
		return CategoryServer
	}
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

type bodyShape struct {
	Message any `json:"message"`
	Error   any `json:"error"`
}

func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var shape bodyShape
	if err := json.Unmarshal(body, &shape); err != nil {
		return ""
	}
	if msg := stringish(shape.Message); msg != "" {
		return msg
	}
	switch v := shape.Error.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return stringish(v["message"])
	}
	return ""
}

// stringish accepts a message or the list form some validators return.
func stringish(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
