package auth

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/luvwish-checkout/pkg/config"
)

// Actor is the caller of a checkout operation. The zero Actor is anonymous.
type Actor struct {
	userID     string
	credential string
}

// NewActor builds an authenticated actor from a verified token.
func NewActor(userID, credential string) Actor {
	return Actor{userID: strings.TrimSpace(userID), credential: strings.TrimSpace(credential)}
}

// Anonymous is the actor of requests without a valid token.
func Anonymous() Actor {
	return Actor{}
}

func (a Actor) IsAuthenticated() bool {
	return a.userID != "" && a.credential != ""
}

func (a Actor) UserID() string {
	return a.userID
}

// Credential is the bearer token forwarded to the remote services.
func (a Actor) Credential() string {
	return a.credential
}

// Authenticator verifies bearer tokens.
type Authenticator struct {
	cfg config.JWTConfig
}

func NewAuthenticator(cfg config.JWTConfig) (*Authenticator, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Authenticator{cfg: cfg}, nil
}

// Authenticate parses token and returns the actor it identifies.
func (a *Authenticator) Authenticate(token string) (Actor, error) {
	claims, err := ParseToken(a.cfg, token)
	if err != nil {
		return Anonymous(), err
	}
	return NewActor(claims.Actor(), token), nil
}
