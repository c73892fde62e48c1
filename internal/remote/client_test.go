package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/broadcast"
	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
)

const testStation = "AGOS-TEST"

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, testStation, 2*time.Second, slog.Default())
}

func TestFetchRecipients(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/recipients", r.URL.Path)
			assert.Equal(t, testStation, r.URL.Query().Get("station"))
			json.NewEncoder(w).Encode([]string{"+111", "+222", ""})
		}))
		defer srv.Close()

		got, err := newTestClient(srv.URL).FetchRecipients(context.Background())
		require.NoError(t, err)
		// Blank entries are dropped.
		assert.Equal(t, []broadcast.Recipient{"+111", "+222"}, got)
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FetchRecipients(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("parse failure is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FetchRecipients(context.Background())
		require.Error(t, err)
	})

	t.Run("unreachable server is an error", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", testStation, 200*time.Millisecond, slog.Default())
		_, err := c.FetchRecipients(context.Background())
		require.Error(t, err)
	})
}

func TestPollCommand(t *testing.T) {
	t.Run("send command", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/command", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{
				"command":   "send",
				"alertType": "flood-watch",
				"message":   "manual watch broadcast",
			})
		}))
		defer srv.Close()

		ev, err := newTestClient(srv.URL).PollCommand(context.Background())
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.Equal(t, domain.CategoryWatch, ev.Category)
		assert.Equal(t, domain.TierWatch, ev.Tier)
		assert.Equal(t, "manual watch broadcast", ev.Message)
	})

	t.Run("send command without message gets a composed one", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"command": "send", "alertType": "all-clear"})
		}))
		defer srv.Close()

		ev, err := newTestClient(srv.URL).PollCommand(context.Background())
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.NotEmpty(t, ev.Message)
	})

	t.Run("no command pending", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"command": "none"})
		}))
		defer srv.Close()

		ev, err := newTestClient(srv.URL).PollCommand(context.Background())
		require.NoError(t, err)
		assert.Nil(t, ev)
	})

	t.Run("unexpected shape means no command", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`["not","a","command"]`))
		}))
		defer srv.Close()

		ev, err := newTestClient(srv.URL).PollCommand(context.Background())
		require.NoError(t, err)
		assert.Nil(t, ev)
	})

	t.Run("unknown alert type means no command", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"command": "send", "alertType": "earthquake"})
		}))
		defer srv.Close()

		ev, err := newTestClient(srv.URL).PollCommand(context.Background())
		require.NoError(t, err)
		assert.Nil(t, ev)
	})
}

func TestPushTelemetry(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/telemetry", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	tel := domain.NewTelemetry(
		domain.TierWatch,
		domain.Reading{true, true, false},
		true, true, 18,
		time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	)
	err := newTestClient(srv.URL).PushTelemetry(context.Background(), tel)
	require.NoError(t, err)

	assert.Equal(t, testStation, got["station"])
	assert.Equal(t, "watch", got["tier"])
	assert.Equal(t, float64(19), got["tier_inches"])
	assert.Equal(t, true, got["modem_ready"])
	assert.Equal(t, true, got["network_registered"])
	assert.Equal(t, float64(18), got["signal_quality"])
}

func TestPushResult(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/results", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).PushResult(context.Background(), broadcast.Result{
			Category:  domain.CategoryFlashFlood,
			Succeeded: 4,
			Failed:    1,
			Timestamp: time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, "flash-flood", got["category"])
		assert.Equal(t, float64(4), got["success_count"])
		assert.Equal(t, float64(1), got["failure_count"])
	})

	t.Run("server error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).PushResult(context.Background(), broadcast.Result{})
		require.Error(t, err)
	})
}
