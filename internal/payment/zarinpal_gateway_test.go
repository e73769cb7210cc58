package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewZarinpalGateway("merchant-1", srv.URL)
}

func TestCreateTransaction_Success(t *testing.T) {
	var gotBody map[string]any
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, requestPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"code":100,"authority":"A0001","fee":100},"errors":[]}`))
	})

	res, err := gw.CreateTransaction(context.Background(), 300.4, "order 1", "https://shop.example/orders/payment/verify", map[string]any{"order_id": "o-1"})
	require.NoError(t, err)

	assert.Equal(t, "A0001", res.Authority)
	assert.Contains(t, res.RedirectURL, startPayPath+"A0001")

	// amount is rounded, not truncated, into the minor unit
	assert.Equal(t, float64(300), gotBody["amount"])
	assert.Equal(t, "merchant-1", gotBody["merchant_id"])
}

func TestCreateTransaction_AmountRoundsUp(t *testing.T) {
	var gotBody map[string]any
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"code":100,"authority":"A0002"},"errors":[]}`))
	})

	_, err := gw.CreateTransaction(context.Background(), 99.5, "order", "cb", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(100), gotBody["amount"])
}

func TestCreateTransaction_GatewayError(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"data":{"code":-9,"message":"invalid merchant"},"errors":{"code":-9}}`))
	})

	_, err := gw.CreateTransaction(context.Background(), 100, "order", "cb", nil)
	require.Error(t, err)

	var ge *GatewayError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, -9, ge.Code)
	assert.Contains(t, ge.Error(), "invalid merchant")
}

func TestCreateTransaction_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	gw := NewZarinpalGateway("merchant-1", srv.URL)

	_, err := gw.CreateTransaction(context.Background(), 100, "order", "cb", nil)
	require.Error(t, err)
	assert.False(t, IsGatewayError(err))
}

func TestVerifyTransaction(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, verifyPath, r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "A0001", body["authority"])
			assert.Equal(t, float64(300), body["amount"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"code":100,"ref_id":201,"card_pan":"502229******1234","fee":100},"errors":[]}`))
		})

		res, err := gw.VerifyTransaction(context.Background(), 300, "A0001")
		require.NoError(t, err)
		assert.Equal(t, int64(201), res.RefID)
		assert.Equal(t, "502229******1234", res.CardPan)
	})

	t.Run("AlreadyVerified", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"code":101,"message":"Verified","ref_id":201},"errors":[]}`))
		})

		_, err := gw.VerifyTransaction(context.Background(), 300, "A0001")
		assert.ErrorIs(t, err, ErrAlreadyVerified)
	})

	t.Run("Rejected", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"data":{"code":-53,"message":"session mismatch"},"errors":{"code":-53}}`))
		})

		_, err := gw.VerifyTransaction(context.Background(), 300, "A0001")
		require.Error(t, err)

		var ge *GatewayError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, -53, ge.Code)
	})
}

func TestGatewayError_Error(t *testing.T) {
	e := &GatewayError{Code: -9, Message: "invalid merchant"}
	assert.Equal(t, "gateway error (code -9): invalid merchant", e.Error())

	e = &GatewayError{Code: -9}
	assert.Equal(t, "gateway error (code -9)", e.Error())
}
