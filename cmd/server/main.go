package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rgcsekaraa/ws-backend/internal/config"
	"github.com/rgcsekaraa/ws-backend/internal/geo"
	"github.com/rgcsekaraa/ws-backend/internal/httpapi"
	"github.com/rgcsekaraa/ws-backend/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var resolver geo.Resolver = geo.Static{}
	if cfg.GeoBaseURL != "" {
		resolver = geo.NewHTTPResolver(cfg.GeoBaseURL)
	}

	sess := session.New(ctx, log)
	handler := httpapi.SetupRoutes(sess, resolver, log)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sess.Inbox() <- session.Shutdown{}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		log, _ := zap.NewDevelopment()
		return log
	}
	log, _ := zap.NewProduction()
	return log
}
