package agent

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend accepts one WebSocket connection and, for every user_message
// received, streams back a text event followed by done.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			var env envelope
			if err := json.Unmarshal(data, &env); err != nil || env.Type != msgUserMessage {
				continue
			}
			var um userMessage
			if err := json.Unmarshal(env.Payload, &um); err != nil {
				continue
			}

			for _, ev := range []Event{
				{Type: EventText, Text: "echo:" + um.Message},
				{Type: EventDone},
			} {
				payload, _ := json.Marshal(ev)
				frame, _ := json.Marshal(envelope{Type: msgEvent, Payload: payload, Timestamp: time.Now()})
				if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
					return
				}
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_SendReceivesEvents(t *testing.T) {
	t.Parallel()

	srv := fakeBackend(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv), "", "sess-1", testLogger())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if err := c.Send(ctx, "hello", "model-x"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var got []Event
	for ev := range c.Events() {
		got = append(got, ev)
		if ev.IsTerminal() {
			break
		}
	}

	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if got[0].Type != EventText || got[0].Text != "echo:hello" {
		t.Errorf("first event = %+v, want echoed text", got[0])
	}
	if got[1].Type != EventDone {
		t.Errorf("second event = %+v, want done", got[1])
	}
}

func TestClient_SendAfterClose(t *testing.T) {
	t.Parallel()

	srv := fakeBackend(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv), "", "sess-1", testLogger())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Send(ctx, "late", ""); err != ErrClosed {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}

func TestClient_EventsChannelClosesOnDisconnect(t *testing.T) {
	t.Parallel()

	// httptest's CloseClientConnections does not reach hijacked (WebSocket)
	// connections, so the server drops the connection itself after the
	// handshake to simulate a disconnect.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		conn.CloseNow()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv), "", "sess-1", testLogger())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	select {
	case _, open := <-c.Events():
		if open {
			t.Error("expected closed events channel after disconnect")
		}
	case <-ctx.Done():
		t.Fatal("events channel not closed after disconnect")
	}
}

func TestEvent_IsTerminal(t *testing.T) {
	t.Parallel()

	if (Event{Type: EventText}).IsTerminal() {
		t.Error("text event reported terminal")
	}
	if !(Event{Type: EventDone}).IsTerminal() {
		t.Error("done event not reported terminal")
	}
	if !(Event{Type: EventError}).IsTerminal() {
		t.Error("error event not reported terminal")
	}
}
