// Package api exposes the thin HTTP edge over the chat service. Routes,
// JSON mapping and status codes live here; all domain rules stay below.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterDependencies struct {
	ChatHandlers *ChatHandlers
}

func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/conversations", func(r chi.Router) {
		r.Get("/{conversationID}", deps.ChatHandlers.HandleGetConversation)
		r.Get("/{conversationID}/messages", deps.ChatHandlers.HandlePaginateMessages)
		r.Put("/{conversationID}/messages/{messageID}", deps.ChatHandlers.HandleUpsertMessage)
	})

	return r
}
