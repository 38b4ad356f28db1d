package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgcsekaraa/ws-backend/internal/engine"
	"github.com/rgcsekaraa/ws-backend/internal/geo"
	"github.com/rgcsekaraa/ws-backend/internal/session"
	"github.com/rgcsekaraa/ws-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
	geoTimeout   = 2 * time.Second
)

func Handler(sess *session.Session, resolver geo.Resolver, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// Country must be settled before the connect event is queued;
		// a failed lookup degrades to Unknown and never blocks the loop.
		country := resolveCountry(r, resolver, log)

		connID := uuid.NewString()
		out := make(chan types.ServerMessage, 8)

		sess.Inbox() <- session.Connect{ConnID: connID, Country: country, Outbox: out}
		defer func() { sess.Inbox() <- session.Disconnect{ConnID: connID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Disconnect handled by the deferred Leave.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				// Malformed input is ignored, same as any invalid claim.
				continue
			}

			cmd, ok := toEngineCommand(cm)
			if !ok {
				continue
			}

			sess.Inbox() <- session.FromClient{ConnID: connID, Cmd: cmd}
		}
	}
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case types.MsgJoinGame:
		return engine.Command{Type: engine.CmdJoinGame, Name: m.Name, Color: m.Color}, true
	case types.MsgClaimSquare:
		return engine.Command{Type: engine.CmdClaimSquare, CellID: m.SquareID}, true
	default:
		return engine.Command{}, false
	}
}

func resolveCountry(r *http.Request, resolver geo.Resolver, log *zap.Logger) string {
	ip := clientIP(r)

	ctx, cancel := context.WithTimeout(r.Context(), geoTimeout)
	defer cancel()

	country, err := resolver.Country(ctx, ip)
	if err != nil || country == "" {
		if err != nil {
			log.Debug("country lookup failed", zap.String("ip", ip), zap.Error(err))
		}
		return geo.UnknownCountry
	}
	return country
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
