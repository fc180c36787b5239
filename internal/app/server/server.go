package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"concord/internal/app/server/handlers"
	"concord/internal/core/services"
	"concord/pkg/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	log         *slog.Logger
	mux         *http.ServeMux
	app         string
	addr        string
	authHandler *handlers.AuthHandler
	apiHandler  *handlers.APIHandler
	wsHandler   *handlers.WSHandler
	tokenSvc    *services.TokenService
}

func NewServer(
	log *slog.Logger,
	app string,
	addr string,
	authHandler *handlers.AuthHandler,
	apiHandler *handlers.APIHandler,
	wsHandler *handlers.WSHandler,
	tokenSvc *services.TokenService,
) *Server {
	s := &Server{
		log:         log,
		mux:         http.NewServeMux(),
		app:         app,
		addr:        addr,
		authHandler: authHandler,
		apiHandler:  apiHandler,
		wsHandler:   wsHandler,
		tokenSvc:    tokenSvc,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	// Public
	s.mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	s.mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Servers
	s.mux.Handle("POST /servers", protected(s.apiHandler.CreateServer))
	s.mux.Handle("GET /servers/{id}", protected(s.apiHandler.GetServer))
	s.mux.Handle("PATCH /servers/{id}", protected(s.apiHandler.RenameServer))
	s.mux.Handle("DELETE /servers/{id}", protected(s.apiHandler.DeleteServer))
	s.mux.Handle("GET /servers/{id}/online", protected(s.apiHandler.OnlineMembers))

	// Memberships
	s.mux.Handle("POST /servers/{id}/members", protected(s.apiHandler.JoinServer))
	s.mux.Handle("DELETE /servers/{id}/members", protected(s.apiHandler.LeaveServer))
	s.mux.Handle("DELETE /servers/{id}/members/{userID}", protected(s.apiHandler.KickMember))

	// Channels
	s.mux.Handle("GET /servers/{id}/channels", protected(s.apiHandler.ListChannels))
	s.mux.Handle("POST /servers/{id}/channels", protected(s.apiHandler.CreateChannel))
	s.mux.Handle("PATCH /channels/{id}", protected(s.apiHandler.RenameChannel))
	s.mux.Handle("DELETE /channels/{id}", protected(s.apiHandler.DeleteChannel))

	// Messages
	s.mux.Handle("GET /channels/{id}/messages", protected(s.apiHandler.ListMessages))
	s.mux.Handle("POST /channels/{id}/messages", protected(s.apiHandler.PostMessage))
	s.mux.Handle("PATCH /messages/{id}", protected(s.apiHandler.EditMessage))
	s.mux.Handle("DELETE /messages/{id}", protected(s.apiHandler.DeleteMessage))

	// Profile
	s.mux.Handle("PATCH /me/username", protected(s.apiHandler.ChangeUsername))
	s.mux.Handle("PATCH /me/avatar", protected(s.apiHandler.ChangeAvatar))

	// Realtime
	s.mux.Handle("GET /ws", protected(s.wsHandler.Serve))
}

func (s *Server) Start(ctx context.Context) error {
	handler := middleware.RequestLogger(s.log)(
		middleware.TracerMiddleware(s.app)(s.mux),
	)

	srv := &http.Server{
		Addr:        s.addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset: it would cut long-lived websocket
		// sessions. Per-message write deadlines cover the slow-peer case.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server - shutdown failed", "err", err)
		}
	}()

	s.log.Info("server - listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
