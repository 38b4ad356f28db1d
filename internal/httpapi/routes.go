package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rgcsekaraa/ws-backend/internal/geo"
	"github.com/rgcsekaraa/ws-backend/internal/session"
	"github.com/rgcsekaraa/ws-backend/internal/ws"
)

func SetupRoutes(sess *session.Session, resolver geo.Resolver, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/ws", ws.Handler(sess, resolver, log))
	r.Get("/healthz", Healthz)
	return r
}
