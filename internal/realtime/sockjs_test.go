package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/igm/sockjs-go/sockjs"

	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/domain"
)

type fakeConn struct {
	req       *http.Request
	mu        sync.Mutex
	sent      []string
	closeCode uint32
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn(target string) *fakeConn {
	return &fakeConn{req: httptest.NewRequest(http.MethodGet, target, nil), closed: make(chan struct{})}
}

func (c *fakeConn) ID() string                           { return "conn-1" }
func (c *fakeConn) Request() *http.Request               { return c.req }
func (c *fakeConn) GetSessionState() sockjs.SessionState { return sockjs.SessionActive }

func (c *fakeConn) Recv() (string, error) {
	<-c.closed
	return "", errors.New("session closed")
}

func (c *fakeConn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return errors.New("session closed")
	default:
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close(status uint32, _ string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = status
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConn) code() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

type fakeAuthn struct {
	mu      sync.Mutex
	session auth.Session
	revoked bool
}

func (a *fakeAuthn) Authenticate(_ context.Context, token string) (*auth.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if token != "tok" || a.revoked {
		return nil, errors.New("session ended")
	}
	session := a.session
	return &session, nil
}

func (a *fakeAuthn) revoke() {
	a.mu.Lock()
	a.revoked = true
	a.mu.Unlock()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startServe(t *testing.T, server *SockJSServer, conn *fakeConn) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.serve(conn)
	}()
	waitFor(t, "initial snapshot", func() bool { return conn.sentCount() == 1 })
	return done
}

func outletAuthn(expiresAt time.Time) *fakeAuthn {
	return &fakeAuthn{session: auth.Session{ID: "s1", Role: domain.RoleOutlet, Outlet: "A", ExpiresAt: expiresAt}}
}

func TestSignedOutSessionStopsReceivingSnapshots(t *testing.T) {
	src := &fakeSource{tickets: []domain.Ticket{{ID: "a1", Outlet: "A"}}}
	hub := NewHub(src, nil)
	authn := outletAuthn(time.Now().Add(time.Hour))
	server := NewSockJSServer(hub, authn, nil)
	server.checkEvery = time.Hour

	conn := newFakeConn("/realtime/websocket?token=tok")
	done := startServe(t, server, conn)

	authn.revoke()
	src.add(domain.Ticket{ID: "a2", Outlet: "A"})
	if err := hub.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	<-done
	if conn.code() != CloseSessionEnded {
		t.Fatalf("close code = %d, want %d", conn.code(), CloseSessionEnded)
	}
	if conn.sentCount() != 1 {
		t.Fatalf("revoked session received %d frames", conn.sentCount())
	}
	if hub.Len() != 0 {
		t.Fatalf("subscription left registered")
	}
}

func TestIdleSignedOutSessionIsClosedByCheck(t *testing.T) {
	hub := NewHub(&fakeSource{}, nil)
	authn := outletAuthn(time.Now().Add(time.Hour))
	server := NewSockJSServer(hub, authn, nil)
	server.checkEvery = 10 * time.Millisecond

	conn := newFakeConn("/realtime/websocket?token=tok")
	done := startServe(t, server, conn)

	authn.revoke()
	<-done
	if conn.code() != CloseSessionEnded || hub.Len() != 0 {
		t.Fatalf("code=%d subs=%d", conn.code(), hub.Len())
	}
}

func TestExpiredSessionIsClosed(t *testing.T) {
	hub := NewHub(&fakeSource{}, nil)
	server := NewSockJSServer(hub, outletAuthn(time.Now().Add(200*time.Millisecond)), nil)
	server.checkEvery = time.Hour

	conn := newFakeConn("/realtime/websocket?token=tok")
	done := startServe(t, server, conn)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expired session still open")
	}
	if conn.code() != CloseSessionEnded || hub.Len() != 0 {
		t.Fatalf("code=%d subs=%d", conn.code(), hub.Len())
	}
}

func TestServeRejectsMissingAndInvalidTokens(t *testing.T) {
	hub := NewHub(&fakeSource{}, nil)
	server := NewSockJSServer(hub, outletAuthn(time.Now().Add(time.Hour)), nil)

	cases := []struct {
		target string
		want   uint32
	}{
		{"/realtime/websocket", CloseMissingToken},
		{"/realtime/websocket?token=bad", CloseInvalidToken},
	}
	for _, tt := range cases {
		conn := newFakeConn(tt.target)
		server.serve(conn)
		if conn.code() != tt.want {
			t.Fatalf("%s: code=%d want %d", tt.target, conn.code(), tt.want)
		}
	}
}
