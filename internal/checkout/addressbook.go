package checkout

import (
	"context"
	"strings"

	"github.com/angelmondragon/luvwish-checkout/internal/addressform"
	"github.com/angelmondragon/luvwish-checkout/pkg/auth"
	pkgerrors "github.com/angelmondragon/luvwish-checkout/pkg/errors"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

func (s *service) ListAddresses(ctx context.Context, actor auth.Actor) ([]types.Address, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return nil, err
	}
	res := s.addresses.ListAddresses(ctx, actor.Credential())
	if !res.OK() {
		return nil, s.fail(ctx, actor, res.Failure())
	}
	return res.Value(), nil
}

func (s *service) CreateAddress(ctx context.Context, actor auth.Actor, input types.AddressInput) (types.Address, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return types.Address{}, err
	}
	if errs := addressform.ValidateInput(input); len(errs) > 0 {
		return types.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
			WithDetails(addressform.Messages(errs))
	}
	res := s.addresses.CreateAddress(ctx, actor.Credential(), input)
	if !res.OK() {
		return types.Address{}, s.fail(ctx, actor, res.Failure())
	}
	return res.Value(), nil
}

// UpdateAddress applies a partial update; only the supplied fields are
// validated. A matching checkout candidate is refreshed.
func (s *service) UpdateAddress(ctx context.Context, actor auth.Actor, addressID string, patch types.AddressPatch) (types.Address, error) {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return types.Address{}, err
	}
	if strings.HasPrefix(addressID, addressform.PendingIDPrefix) {
		return types.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "address has not been saved yet")
	}
	if patch.IsEmpty() {
		return types.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if errs := validatePatch(patch); len(errs) > 0 {
		return types.Address{}, pkgerrors.New(pkgerrors.CodeValidation, "address is invalid").
			WithDetails(addressform.Messages(errs))
	}

	res := s.addresses.UpdateAddress(ctx, actor.Credential(), addressID, patch)
	if !res.OK() {
		return types.Address{}, s.fail(ctx, actor, res.Failure())
	}
	updated := res.Value()

	if _, err := s.update(ctx, actor.UserID(), func(cur *Session) error {
		for i, c := range cur.Candidates {
			if c.ID() == addressID && c.IsDurable() {
				cur.Candidates[i] = Persisted(updated)
			}
		}
		return nil
	}); err != nil {
		s.logg.Error(ctx, "checkout.address.session_refresh_failed", err)
	}
	return updated, nil
}

func (s *service) DeleteAddress(ctx context.Context, actor auth.Actor, addressID string) error {
	ctx, err := s.authorize(ctx, actor, msgLogin)
	if err != nil {
		return err
	}
	if strings.TrimSpace(addressID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	if !strings.HasPrefix(addressID, addressform.PendingIDPrefix) {
		res := s.addresses.DeleteAddress(ctx, actor.Credential(), addressID)
		if !res.OK() {
			return s.fail(ctx, actor, res.Failure())
		}
	}
	if _, err := s.update(ctx, actor.UserID(), func(cur *Session) error {
		cur.removeCandidate(addressID)
		return nil
	}); err != nil {
		s.logg.Error(ctx, "checkout.address.session_refresh_failed", err)
	}
	return nil
}

func validatePatch(patch types.AddressPatch) map[addressform.Field]string {
	errs := map[addressform.Field]string{}
	fields := map[addressform.Field]*string{
		addressform.FieldName:       patch.Name,
		addressform.FieldPhone:      patch.Phone,
		addressform.FieldAddress:    patch.Address,
		addressform.FieldCity:       patch.City,
		addressform.FieldState:      patch.State,
		addressform.FieldCountry:    patch.Country,
		addressform.FieldPostalCode: patch.PostalCode,
	}
	for field, value := range fields {
		if value == nil {
			continue
		}
		if msg := addressform.ValidateField(field, *value); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}
