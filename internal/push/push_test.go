package push_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trimreview/internal/auth"
	"trimreview/internal/instruction"
	"trimreview/internal/logging"
	"trimreview/internal/push"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + push.UpdatesPath
}

func TestHubBroadcastReachesDialedClient(t *testing.T) {
	hub := push.NewHub(logging.NewNop())
	defer hub.Close()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		hub.ServeHTTP(w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dialer := &push.Dialer{URL: wsURL(srv), Credentials: auth.StaticToken("secret")}
	conn, err := dialer.Dial(ctx)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Bearer secret", gotAuth)

	updated := time.Date(2026, 4, 1, 10, 0, 0, 123000, time.UTC)
	hub.Broadcast(instruction.Instruction{ID: "i1", Status: instruction.StatusApproved, UpdatedAt: updated})

	rec, err := conn.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, "i1", rec.ID)
	assert.Equal(t, instruction.StatusApproved, rec.Status)
	assert.True(t, rec.UpdatedAt.Equal(updated))
}

func TestConnReportsMalformedFramesWithoutClosing(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"i2","status":"pending","updatedAt":"2026-01-01T00:00:00Z"}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	conn, err := (&push.Dialer{URL: wsURL(srv)}).Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ReadRecord()
	require.ErrorIs(t, err, instruction.ErrMalformedRecord)

	rec, err := conn.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, "i2", rec.ID)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	hub := push.NewHub(logging.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, err := (&push.Dialer{URL: wsURL(srv)}).Dial(context.Background())
	require.NoError(t, err)
	_ = conn.Close()
	_ = conn.Close()

	_, err = conn.ReadRecord()
	assert.Error(t, err)
	hub.Close()
	hub.Close()
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := push.NewHub(logging.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, err := (&push.Dialer{URL: wsURL(srv)}).Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	_, err = conn.ReadRecord()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Clients())
}

func TestDialFailsWhenServerUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	_, err := (&push.Dialer{URL: wsURL(srv), HandshakeTimeout: time.Second}).Dial(context.Background())
	assert.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		api, ws, want string
	}{
		{"http://127.0.0.1:7610", "", "ws://127.0.0.1:7610/ws/updates"},
		{"https://trimmer.example.com/api", "", "wss://trimmer.example.com/ws/updates"},
		{"http://host", "wss://push.example/custom", "wss://push.example/custom"},
	}
	for _, tc := range cases {
		got, err := push.ResolveURL(tc.api, tc.ws)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := push.ResolveURL("ftp://host", "")
	assert.Error(t, err)
}
