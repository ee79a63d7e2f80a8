package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/pkg/config"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

// CartGateway talks to the remote cart service, which owns the cart of record.
type CartGateway struct {
	client *client
}

func NewCartGateway(cfg config.GatewayConfig, deps Deps) (*CartGateway, error) {
	c, err := newClient("cart", cfg.CartBaseURL, cfg, deps)
	if err != nil {
		return nil, err
	}
	return &CartGateway{client: c}, nil
}

type wireImage struct {
	URL    string `json:"url"`
	IsMain bool   `json:"isMain"`
}

type wireProduct struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ActualPrice     decimal.Decimal `json:"actualPrice"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	Images          []wireImage     `json:"images"`
}

type wireLine struct {
	ID        string       `json:"id"`
	CartID    string       `json:"cartId"`
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
	Product   *wireProduct `json:"product"`
}

type wireCart struct {
	ID          string           `json:"id"`
	CartID      string           `json:"cartId"`
	Items       []wireLine       `json:"items"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
}

type updateLineBody struct {
	ID        string `json:"id,omitempty"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type addLineBody struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// FetchCart returns the current cart snapshot.
func (g *CartGateway) FetchCart(ctx context.Context, credential string) Result[types.CartSnapshot] {
	resp, f := g.client.do(ctx, "fetch", request{
		method:     http.MethodGet,
		path:       []string{"cart"},
		credential: credential,
	})
	if f != nil {
		return failed[types.CartSnapshot](f)
	}
	env, f := decodeEnvelope(resp)
	if f != nil {
		return failed[types.CartSnapshot](f)
	}
	snapshot, err := decodeCart(env.Data)
	if err != nil {
		return failed[types.CartSnapshot](failure.Classify(err))
	}
	return ok(snapshot)
}

// AddLine adds a product to the cart.
func (g *CartGateway) AddLine(ctx context.Context, credential, productID string, quantity int) Result[Empty] {
	if strings.TrimSpace(productID) == "" {
		return failed[Empty](failure.Validation("product id is required"))
	}
	if quantity < 1 {
		return failed[Empty](failure.Validation("quantity must be at least 1"))
	}
	return g.mutate(ctx, "add", request{
		method:     http.MethodPost,
		path:       []string{"cart", "add"},
		body:       addLineBody{ProductID: productID, Quantity: quantity},
		credential: credential,
	})
}

// UpdateLine sets the quantity of an existing line.
func (g *CartGateway) UpdateLine(ctx context.Context, credential string, line types.CartLine, quantity int) Result[Empty] {
	if quantity < 1 {
		return failed[Empty](failure.Validation("quantity must be at least 1"))
	}
	return g.mutate(ctx, "update", request{
		method:     http.MethodPatch,
		path:       []string{"cart", "update-cart"},
		body:       updateLineBody{ID: line.LineID, ProductID: line.ProductID, Quantity: quantity},
		credential: credential,
	})
}

// RemoveLine deletes a line from the cart.
func (g *CartGateway) RemoveLine(ctx context.Context, credential, lineID string) Result[Empty] {
	if strings.TrimSpace(lineID) == "" {
		return failed[Empty](failure.Validation("line id is required"))
	}
	return g.mutate(ctx, "remove", request{
		method:     http.MethodDelete,
		path:       []string{"cart", "delete-cart", url.PathEscape(lineID)},
		credential: credential,
	})
}

func (g *CartGateway) mutate(ctx context.Context, operation string, req request) Result[Empty] {
	resp, f := g.client.do(ctx, operation, req)
	if f != nil {
		return failed[Empty](f)
	}
	if _, f := decodeEnvelope(resp); f != nil {
		return failed[Empty](f)
	}
	return ok(Empty{})
}

// decodeCart accepts both the {items,totalAmount} form and the bare line array
// served by older cart versions, which carries no server total.
func decodeCart(raw json.RawMessage) (types.CartSnapshot, error) {
	if !hasData(raw) {
		return types.CartSnapshot{Lines: []types.CartLine{}}, nil
	}

	var wc wireCart
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		if err := json.Unmarshal(raw, &wc.Items); err != nil {
			return types.CartSnapshot{}, fmt.Errorf("decode cart lines: %w", err)
		}
	} else if err := json.Unmarshal(raw, &wc); err != nil {
		return types.CartSnapshot{}, fmt.Errorf("decode cart: %w", err)
	}

	cartID := wc.CartID
	if cartID == "" {
		cartID = wc.ID
	}
	snapshot := types.CartSnapshot{
		CartID:      cartID,
		Lines:       make([]types.CartLine, 0, len(wc.Items)),
		TotalAmount: wc.TotalAmount,
	}
	for _, item := range wc.Items {
		snapshot.Lines = append(snapshot.Lines, item.toLine())
	}
	return snapshot, nil
}

func (w wireLine) toLine() types.CartLine {
	line := types.CartLine{
		LineID:    w.ID,
		CartID:    w.CartID,
		ProductID: w.ProductID,
		Quantity:  w.Quantity,
	}
	if w.Product != nil {
		productID := w.Product.ID
		if productID == "" {
			productID = w.ProductID
		}
		line.Product = &types.Product{
			ID:              productID,
			Name:            w.Product.Name,
			Description:     w.Product.Description,
			MainImage:       mainImage(w.Product.Images),
			ActualPrice:     w.Product.ActualPrice,
			DiscountedPrice: w.Product.DiscountedPrice,
		}
	}
	return line
}

func mainImage(images []wireImage) string {
	for _, img := range images {
		if img.IsMain {
			return img.URL
		}
	}
	return ""
}
