package ais

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// closeAfterSubscribeServer accepts one websocket client, reads its
// subscribe request, and immediately closes the connection — simulating a
// normal upstream disconnect right after a successful open.
func closeAfterSubscribeServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	})
	return httptest.NewServer(mux)
}

func TestConnectAndReadResetsAttemptsOnConfirmedOpen(t *testing.T) {
	srv := closeAfterSubscribeServer(t)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(wsURL, "test-key", NewQueue(10), NewDedupSet(10), slog.Default())
	c.attempts = maxReconnectAttempts

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.connectAndRead(ctx)
	if err == nil {
		t.Fatal("expected connectAndRead to return an error once the server closes the socket")
	}
	if c.attempts != 0 {
		t.Errorf("expected attempts reset to 0 once the socket confirmed open, got %d", c.attempts)
	}
}
