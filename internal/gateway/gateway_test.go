package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-enrollment-api/pkg/config"
)

func TestCreatePaymentLink(t *testing.T) {
	var captured createPaymentLinkBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, paymentLinksPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"payment_link":{"id":"pl-1","url":"https://pay.example/pl-1","order_id":"o-1"}}`))
	}))
	defer srv.Close()

	client := NewPaymentClient(config.PaymentsConfig{
		BaseURL: srv.URL, AccessToken: "tok", LocationID: "loc", Currency: "usd",
		RedirectURL: "https://academy.example/thanks", Timeout: time.Second,
	})
	link, err := client.CreatePaymentLink(context.Background(), PaymentLinkRequest{
		Title: "C1 - Intro", PriceCents: 4000, BuyerEmail: "ana@example.com",
		Note: `{"courseId":"C1","modality":"in-person","discountCode":"SAVE10"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/pl-1", link.URL)
	assert.Equal(t, "o-1", link.OrderID)

	assert.EqualValues(t, 4000, captured.QuickPay.PriceMoney.Amount)
	assert.Equal(t, "USD", captured.QuickPay.PriceMoney.Currency)
	assert.Equal(t, "loc", captured.QuickPay.LocationID)
	require.NotNil(t, captured.CheckoutOptions)
	assert.Equal(t, "https://academy.example/thanks", captured.CheckoutOptions.RedirectURL)
	require.NotNil(t, captured.PrePopulatedData)
	assert.Equal(t, "ana@example.com", captured.PrePopulatedData.BuyerEmail)
	assert.Contains(t, captured.PaymentNote, `"discountCode":"SAVE10"`)
	assert.NotEmpty(t, captured.IdempotencyKey)
}

func TestCreatePaymentLinkUnwrapsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"INVALID_VALUE","detail":"Invalid location id"}]}`))
	}))
	defer srv.Close()

	client := NewPaymentClient(config.PaymentsConfig{BaseURL: srv.URL, AccessToken: "tok", LocationID: "bad"})
	_, err := client.CreatePaymentLink(context.Background(), PaymentLinkRequest{Title: "x", PriceCents: 1})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid location id", apiErr.Message)
}

func TestExtractErrorMessage(t *testing.T) {
	cases := map[string]string{
		`{"message":"Unauthorized"}`:            "Unauthorized",
		`{"error":{"message":"card declined"}}`: "card declined",
		`{"error":"rate limited"}`:              "rate limited",
		`upstream exploded`:                     "upstream exploded",
		``:                                      "502 Bad Gateway",
	}
	for raw, want := range cases {
		assert.Equal(t, want, ExtractErrorMessage([]byte(raw), "502 Bad Gateway"), raw)
	}
}

func TestCRMDeleteCouponByCode(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coupons", r.URL.Path)
		assert.Equal(t, "loc-1", r.URL.Query().Get("altId"))
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"data":[{"_id":"cp-1","code":"SPRING"},{"_id":"cp-2","code":"SAVE10"}]}`))
		case http.MethodDelete:
			deleted = r.URL.Query().Get("id")
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client := NewCRMClient(config.CRMConfig{BaseURL: srv.URL, APIKey: "key", LocationID: "loc-1"})
	require.NoError(t, client.DeleteCouponByCode(context.Background(), "save10"))
	assert.Equal(t, "cp-2", deleted)

	deleted = ""
	require.NoError(t, client.DeleteCouponByCode(context.Background(), "UNKNOWN"))
	assert.Empty(t, deleted)
}

func TestCRMClientNotConfigured(t *testing.T) {
	client := NewCRMClient(config.CRMConfig{})
	assert.False(t, client.Configured())
	_, err := client.ListCoupons(context.Background())
	assert.Error(t, err)
}
