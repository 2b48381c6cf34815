package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/igm/sockjs-go/sockjs"
	"go.uber.org/zap"

	"github.com/outletops/maintenance-tickets/internal/api/dto"
	"github.com/outletops/maintenance-tickets/internal/auth"
	"github.com/outletops/maintenance-tickets/internal/repository"
	"github.com/outletops/maintenance-tickets/internal/service"
)

// Close codes sent to SockJS clients.
const (
	CloseMissingToken  uint32 = 4001
	CloseInvalidToken  uint32 = 4002
	CloseAccessDenied  uint32 = 4003
	CloseSnapshotError uint32 = 4004
	CloseSessionEnded  uint32 = 4005
)

const defaultSessionCheckInterval = 30 * time.Second

// Authenticator turns a raw token into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Session, error)
}

// SubscribeMessage is sent by clients to narrow or widen their view.
type SubscribeMessage struct {
	Action string `json:"action"`
	Outlet string `json:"outlet"`
}

type snapshotFrame struct {
	Type    string               `json:"type"`
	Outlet  string               `json:"outlet,omitempty"`
	At      time.Time            `json:"at"`
	Tickets []dto.TicketResponse `json:"tickets"`
}

// ParseSubscribe accepts subscribe and unsubscribe messages only.
func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}

// QueryFor resolves the query a session may observe. Admins may narrow to one
// outlet; outlets are always pinned to their own and may not ask for another.
func QueryFor(session *auth.Session, requestedOutlet string) (repository.TicketQuery, bool) {
	base, err := service.ScopeQuery(session)
	if err != nil {
		return repository.TicketQuery{}, false
	}
	requestedOutlet = strings.TrimSpace(requestedOutlet)
	if base.Outlet != nil {
		return base, requestedOutlet == "" || requestedOutlet == *base.Outlet
	}
	if requestedOutlet == "" || strings.EqualFold(requestedOutlet, service.FilterAll) {
		return base, true
	}
	return repository.TicketQuery{Outlet: &requestedOutlet}, true
}

// SockJSServer streams ticket snapshots over SockJS.
type SockJSServer struct {
	hub        *Hub
	authn      Authenticator
	logger     *zap.Logger
	checkEvery time.Duration
}

// NewSockJSServer builds the transport.
func NewSockJSServer(hub *Hub, authn Authenticator, logger *zap.Logger) *SockJSServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SockJSServer{hub: hub, authn: authn, logger: logger, checkEvery: defaultSessionCheckInterval}
}

// Handler returns the SockJS handler mounted under /realtime.
func (s *SockJSServer) Handler() http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, s.serve)
}

func (s *SockJSServer) serve(conn sockjs.Session) {
	token := tokenFromRequest(conn.Request())
	if token == "" {
		_ = conn.Close(CloseMissingToken, "missing token")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := s.authn.Authenticate(ctx, token)
	if err != nil {
		_ = conn.Close(CloseInvalidToken, "invalid session")
		return
	}
	query, ok := QueryFor(session, "")
	if !ok {
		_ = conn.Close(CloseAccessDenied, "access denied")
		return
	}

	sub, err := s.hub.Subscribe(ctx, query)
	if err != nil {
		s.logger.Warn("realtime subscribe failed", zap.String("session_id", session.ID), zap.Error(err))
		_ = conn.Close(CloseSnapshotError, "snapshot unavailable")
		return
	}
	defer sub.Cancel()
	s.logger.Debug("realtime subscribed",
		zap.String("subscription_id", sub.ID),
		zap.String("role", string(session.Role)),
		zap.String("query", query.Key()))

	if !session.ExpiresAt.IsZero() {
		expiry := time.AfterFunc(time.Until(session.ExpiresAt), func() {
			s.endSession(conn, sub, session, "session expired")
		})
		defer expiry.Stop()
	}

	go s.pump(ctx, conn, sub, session, token)

	for {
		msg, err := conn.Recv()
		if err != nil {
			return
		}
		parsed, ok := ParseSubscribe([]byte(msg))
		if !ok {
			continue
		}
		requested := parsed.Outlet
		if parsed.Action == "unsubscribe" {
			requested = ""
		}
		next, allowed := QueryFor(session, requested)
		if !allowed {
			_ = conn.Close(CloseAccessDenied, "access denied")
			return
		}
		if err := s.hub.Retarget(ctx, sub, next); err != nil {
			s.logger.Warn("realtime retarget failed", zap.String("subscription_id", sub.ID), zap.Error(err))
		}
	}
}

// pump forwards snapshots while the session stays valid. The token is checked
// again before every send and on a timer, so a signed-out or expired session
// stops receiving data.
func (s *SockJSServer) pump(ctx context.Context, conn sockjs.Session, sub *Subscription, session *auth.Session, token string) {
	ticker := time.NewTicker(s.checkEvery)
	defer ticker.Stop()
	for {
		select {
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			if !s.sessionValid(ctx, token) {
				s.endSession(conn, sub, session, "session ended")
				return
			}
			payload, err := json.Marshal(frameFor(session, snap))
			if err != nil {
				s.logger.Error("encode snapshot", zap.Error(err))
				continue
			}
			if err := conn.Send(string(payload)); err != nil {
				return
			}
		case <-ticker.C:
			if !s.sessionValid(ctx, token) {
				s.endSession(conn, sub, session, "session ended")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *SockJSServer) sessionValid(ctx context.Context, token string) bool {
	_, err := s.authn.Authenticate(ctx, token)
	return err == nil
}

func (s *SockJSServer) endSession(conn sockjs.Session, sub *Subscription, session *auth.Session, reason string) {
	sub.Cancel()
	s.logger.Info("realtime session closed",
		zap.String("session_id", session.ID),
		zap.String("reason", reason))
	_ = conn.Close(CloseSessionEnded, reason)
}

func frameFor(session *auth.Session, snap Snapshot) snapshotFrame {
	frame := snapshotFrame{Type: "snapshot", At: snap.At, Tickets: make([]dto.TicketResponse, 0, len(snap.Tickets))}
	if snap.Query.Outlet != nil {
		frame.Outlet = *snap.Query.Outlet
	}
	isAdmin := session.IsAdmin()
	for _, ticket := range snap.Tickets {
		frame.Tickets = append(frame.Tickets, dto.NewTicketResponse(ticket, service.AvailableActions(isAdmin, ticket)))
	}
	return frame
}

func tokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
