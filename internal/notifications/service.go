package notifications

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
)

// Service exposes the notice board to the HTTP layer.
type Service interface {
	List(ctx context.Context, scope string) ([]Notice, error)
	Dismiss(ctx context.Context, scope, id string) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, scope string) ([]Notice, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scope required")
	}
	notices, err := s.repo.List(ctx, scope, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notices")
	}
	return notices, nil
}

func (s *service) Dismiss(ctx context.Context, scope, id string) error {
	if strings.TrimSpace(scope) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "scope required")
	}
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notice id required")
	}
	found, err := s.repo.Dismiss(ctx, scope, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dismiss notice")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notice not found")
	}
	return nil
}
