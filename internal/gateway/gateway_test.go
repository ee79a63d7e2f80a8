package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/luvwish-checkout/internal/failure"
	"github.com/angelmondragon/luvwish-checkout/pkg/config"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

func testConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		CartBaseURL:             baseURL,
		Timeout:                 2 * time.Second,
		BreakerMaxRequests:      1,
		BreakerInterval:         time.Minute,
		BreakerOpenTimeout:      time.Minute,
		BreakerFailureThreshold: 2,
	}
}

func TestFetchCartObjectForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/cart", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		io.WriteString(w, `{"success":true,"data":{"id":"cart-1","totalAmount":899,"items":[
			{"id":"line-1","productId":"p1","quantity":1,"product":{"id":"p1","name":"Rose Serum","actualPrice":"999","discountedPrice":899,
			 "images":[{"url":"a.png","isMain":false},{"url":"main.png","isMain":true}]}},
			{"id":"line-2","productId":"p2","quantity":3,"product":null}]}}`)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL+"/v1"), Deps{})
	require.NoError(t, err)

	res := gw.FetchCart(context.Background(), "token-1")
	require.True(t, res.OK(), "unexpected failure %v", res.Failure())

	snap := res.Value()
	assert.Equal(t, "cart-1", snap.CartID)
	require.NotNil(t, snap.TotalAmount)
	assert.Equal(t, "899", snap.TotalAmount.String())
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "main.png", snap.Lines[0].Product.MainImage)
	assert.Equal(t, "999", snap.Lines[0].Product.ActualPrice.String())
	assert.Nil(t, snap.Lines[1].Product)
}

func TestFetchCartBareArrayHasNoServerTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":[{"id":"line-1","cartId":"cart-7","productId":"p1","quantity":2}]}`)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	snap, err := gw.FetchCart(context.Background(), "t").Unwrap()
	require.NoError(t, err)
	assert.Nil(t, snap.TotalAmount)
	assert.Equal(t, "cart-7", snap.ResolvedCartID())
}

func TestFetchCartNullDataIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":null}`)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	snap, err := gw.FetchCart(context.Background(), "t").Unwrap()
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
	assert.NotNil(t, snap.Lines)
}

func TestUpdateLineSendsQuantityAndClassifiesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/cart/update-cart", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "line-1", body["id"])
		assert.Equal(t, "p1", body["productId"])
		assert.EqualValues(t, 5, body["quantity"])
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"success":false,"message":"Only 4 left in stock"}`)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	res := gw.UpdateLine(context.Background(), "t", types.CartLine{LineID: "line-1", ProductID: "p1"}, 5)
	require.False(t, res.OK())
	assert.Equal(t, failure.CategoryValidation, res.Failure().Category)
	assert.Equal(t, "Only 4 left in stock", res.Failure().Message)
}

func TestUpdateLineBelowOneNeverCallsService(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	res := gw.UpdateLine(context.Background(), "t", types.CartLine{LineID: "l"}, 0)
	require.False(t, res.OK())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSuccessFalseOnOKStatusIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"message":"Product unavailable"}`)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	res := gw.AddLine(context.Background(), "t", "p1", 1)
	require.False(t, res.OK())
	assert.Equal(t, "Product unavailable", res.Failure().Message)
}

func TestRemoveLineEscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart/delete-cart/a%2Fb", r.URL.EscapedPath())
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	res := gw.RemoveLine(context.Background(), "t", "a/b")
	assert.True(t, res.OK(), "unexpected failure %v", res.Failure())
}

func TestBreakerOpensAfterServerFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"message":"database unavailable"}`)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res := gw.FetchCart(context.Background(), "t")
		require.False(t, res.OK())
		assert.Equal(t, failure.CategoryServer, res.Failure().Category)
		assert.Equal(t, "database unavailable", res.Failure().Message)
	}

	res := gw.FetchCart(context.Background(), "t")
	require.False(t, res.OK())
	assert.Equal(t, failure.CategoryNetwork, res.Failure().Category)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"token expired"}`)
	}))
	defer srv.Close()

	gw, err := NewCartGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		res := gw.FetchCart(context.Background(), "t")
		require.False(t, res.OK())
		assert.Equal(t, failure.CategoryAuth, res.Failure().Category)
	}
}

func TestApplyCouponWithoutCredentialIsNotAttempted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	gw, err := NewCouponGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	res := gw.ApplyCoupon(context.Background(), "", "cart-1", "WELCOME10")
	require.False(t, res.OK())
	assert.Equal(t, failure.CategoryAuth, res.Failure().Category)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestApplyCoupon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coupons", r.URL.Path)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		var body applyCouponBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, applyCouponBody{CartID: "cart-1", CouponName: "WELCOME10"}, body)
		io.WriteString(w, `{"success":true,"message":"Coupon applied","data":{"discount":"89.9","totalAmount":"809.1"}}`)
	}))
	defer srv.Close()

	gw, err := NewCouponGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	res, err := gw.ApplyCoupon(context.Background(), "t", "cart-1", "  WELCOME10 ").Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "Coupon applied", res.Message)
	assert.Equal(t, "89.9", res.Discount.String())
	require.NotNil(t, res.TotalAmount)
	assert.Equal(t, "809.1", res.TotalAmount.String())
}

func TestUpdateAddressNeverSendsServerOwnedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/addresses/addr-1", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		for _, field := range []string{`"id"`, `"createdAt"`, `"updatedAt"`} {
			assert.False(t, strings.Contains(string(raw), field), "payload leaked %s: %s", field, raw)
		}
		io.WriteString(w, `{"success":true,"data":{"id":"addr-1","name":"Asha","city":"Kochi"}}`)
	}))
	defer srv.Close()

	gw, err := NewAddressGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	city := "Kochi"
	addr, err := gw.UpdateAddress(context.Background(), "t", "addr-1", types.AddressPatch{City: &city}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "addr-1", addr.ID)
}

func TestListAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":[{"id":"a1","name":"Home","isDefault":false},{"id":"a2","name":"Work","isDefault":true}]}`)
	}))
	defer srv.Close()

	gw, err := NewAddressGateway(testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	addrs, err := gw.ListAddresses(context.Background(), "t").Unwrap()
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.True(t, addrs[1].IsDefault)
}

func TestTransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	gw, err := NewCartGateway(testConfig(url), Deps{})
	require.NoError(t, err)

	res := gw.FetchCart(context.Background(), "t")
	require.False(t, res.OK())
	assert.Equal(t, failure.CategoryNetwork, res.Failure().Category)
	assert.True(t, res.Failure().Retryable())
}
