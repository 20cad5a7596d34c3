package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/classwatch/classwatch/internal/web/handlers"
	"github.com/classwatch/classwatch/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	// Create handlers
	authHandler := handlers.NewAuthHandler(s.config, sessionManager)
	studentsHandler := handlers.NewStudentsHandler(s.config, s.store, s.detector, s.pipeline)
	recordsHandler := handlers.NewRecordsHandler(s.store)
	exportHandler := handlers.NewExportHandler(s.store)
	statsHandler := handlers.NewStatsHandler(s.store)
	streamHandler := handlers.NewStreamHandler(s.config, s.pipeline)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Self-service enrollment kiosk, no session required
		r.Post("/students", studentsHandler.Register)

		// Everything else requires an admin session
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			// Students
			r.Get("/students", studentsHandler.List)
			r.Get("/students/{id}", studentsHandler.Get)
			r.Put("/students/{id}", studentsHandler.Update)
			r.Put("/students/{id}/photo", studentsHandler.UpdatePhoto)
			r.Delete("/students/{id}", studentsHandler.Delete)

			// Attendance
			r.Get("/attendance", recordsHandler.List)
			r.Post("/attendance", recordsHandler.ManualMark)
			r.Get("/attendance/export", exportHandler.Export)

			// Dashboard
			r.Get("/stats", statsHandler.Dashboard)

			// Recognition pipeline
			r.Get("/recognition/status", streamHandler.Status)
			r.Post("/recognition/start", streamHandler.Start)
			r.Post("/recognition/stop", streamHandler.Stop)
			r.Post("/recognition/reload", streamHandler.Reload)
		})
	})

	// The MJPEG feed sits outside /api/v1 so it can be used directly as
	// an <img> source on the attendance kiosk. No session required.
	s.router.Get("/video/feed", streamHandler.VideoFeed)
}
