package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/pkg/config"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

// AddressGateway talks to the remote address book.
type AddressGateway struct {
	client *client
}

func NewAddressGateway(cfg config.GatewayConfig, deps Deps) (*AddressGateway, error) {
	c, err := newClient("address", cfg.AddressURL(), cfg, deps)
	if err != nil {
		return nil, err
	}
	return &AddressGateway{client: c}, nil
}

// ListAddresses returns every saved address of the actor.
func (g *AddressGateway) ListAddresses(ctx context.Context, credential string) Result[[]types.Address] {
	resp, f := g.client.do(ctx, "list", request{
		method:     http.MethodGet,
		path:       []string{"addresses"},
		credential: credential,
	})
	if f != nil {
		return failed[[]types.Address](f)
	}
	env, f := decodeEnvelope(resp)
	if f != nil {
		return failed[[]types.Address](f)
	}
	addresses := []types.Address{}
	if hasData(env.Data) {
		if err := json.Unmarshal(env.Data, &addresses); err != nil {
			return failed[[]types.Address](failure.Classify(fmt.Errorf("decode addresses: %w", err)))
		}
	}
	return ok(addresses)
}

// CreateAddress saves a new address.
func (g *AddressGateway) CreateAddress(ctx context.Context, credential string, input types.AddressInput) Result[types.Address] {
	return g.single(ctx, "create", request{
		method:     http.MethodPost,
		path:       []string{"addresses"},
		body:       input,
		credential: credential,
	})
}

// UpdateAddress applies a partial update. The patch type cannot carry
// id/createdAt/updatedAt, so server-owned fields never leave this process.
func (g *AddressGateway) UpdateAddress(ctx context.Context, credential, id string, patch types.AddressPatch) Result[types.Address] {
	if strings.TrimSpace(id) == "" {
		return failed[types.Address](failure.Validation("address id is required"))
	}
	if patch.IsEmpty() {
		return failed[types.Address](failure.Validation("nothing to update"))
	}
	return g.single(ctx, "update", request{
		method:     http.MethodPatch,
		path:       []string{"addresses", url.PathEscape(id)},
		body:       patch,
		credential: credential,
	})
}

// DeleteAddress removes a saved address.
func (g *AddressGateway) DeleteAddress(ctx context.Context, credential, id string) Result[Empty] {
	if strings.TrimSpace(id) == "" {
		return failed[Empty](failure.Validation("address id is required"))
	}
	resp, f := g.client.do(ctx, "delete", request{
		method:     http.MethodDelete,
		path:       []string{"addresses", url.PathEscape(id)},
		credential: credential,
	})
	if f != nil {
		return failed[Empty](f)
	}
	if _, f := decodeEnvelope(resp); f != nil {
		return failed[Empty](f)
	}
	return ok(Empty{})
}

func (g *AddressGateway) single(ctx context.Context, operation string, req request) Result[types.Address] {
	resp, f := g.client.do(ctx, operation, req)
	if f != nil {
		return failed[types.Address](f)
	}
	env, f := decodeEnvelope(resp)
	if f != nil {
		return failed[types.Address](f)
	}
	var addr types.Address
	if hasData(env.Data) {
		if err := json.Unmarshal(env.Data, &addr); err != nil {
			return failed[types.Address](failure.Classify(fmt.Errorf("decode address: %w", err)))
		}
	}
	return ok(addr)
}
