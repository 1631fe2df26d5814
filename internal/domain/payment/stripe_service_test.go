package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(serverURL string) *StripeService {
	return &StripeService{
		secretKey:  "sk_test_secret",
		baseURL:    serverURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestConfirm_Succeeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		require.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":15117}`))
	}))
	defer server.Close()

	status, err := newTestService(server.URL).Confirm(context.Background(), "pi_123")
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, status)
}

func TestConfirm_StatusMapping(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"succeeded", StatusSucceeded},
		{"processing", StatusProcessing},
		{"requires_action", StatusRequiresAction},
		{"requires_payment_method", StatusRequiresAction},
		{"requires_confirmation", StatusRequiresAction},
		{"canceled", StatusCanceled},
		{"something_new", StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"id":"pi_1","status":"` + tt.raw + `"}`))
			}))
			defer server.Close()

			status, err := newTestService(server.URL).Confirm(context.Background(), "pi_1")
			require.NoError(t, err)
			require.Equal(t, tt.want, status)
		})
	}
}

func TestConfirm_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such payment_intent"}}`))
	}))
	defer server.Close()

	_, err := newTestService(server.URL).Confirm(context.Background(), "pi_missing")
	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestConfirm_GatewayServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestService(server.URL).Confirm(context.Background(), "pi_1")
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestConfirm_GatewayUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Refuse connections

	_, err := newTestService(server.URL).Confirm(context.Background(), "pi_1")
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestConfirm_EmptyReference(t *testing.T) {
	_, err := newTestService("http://localhost:0").Confirm(context.Background(), "")
	require.Error(t, err)
}
