package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"kknotes-backend-go/internal/config"
	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/services"
	"kknotes-backend-go/internal/store"
)

type Server struct {
	Config     config.Config
	Store      store.Store
	Sessions   *services.Sessions
	Navigator  *services.Navigator
	Mutator    *services.Mutator
	Chat       *services.Chat
	ChatHub    *services.Hub
	MetricsHub *services.Hub
	Metrics    services.MetricsRecorder
}

// NewServer wires the services around st. Signing out closes the
// session's open sockets.
func NewServer(cfg config.Config, st store.Store, sessions *services.Sessions, monitor *services.ReadMonitor) *Server {
	navigator := services.NewNavigator(st, monitor)
	chatHub := services.NewHub("chat")
	s := &Server{
		Config:     cfg,
		Store:      st,
		Sessions:   sessions,
		Navigator:  navigator,
		Mutator:    services.NewMutator(st, navigator),
		Chat:       services.NewChat(st, chatHub, cfg.ChatHistoryLimit, monitor),
		ChatHub:    chatHub,
		MetricsHub: services.NewHub("metrics"),
		Metrics:    services.MetricsRecorder{Store: st, Retention: cfg.MetricsRetention},
	}
	sessions.Subscribe(func(event services.AuthEvent) {
		if event.Type != services.EventSignedOut {
			return
		}
		s.ChatHub.CloseSession(event.SessionID)
		s.MetricsHub.CloseSession(event.SessionID)
	})
	return s
}

// Run drives the hubs and the chat subscription until ctx ends.
func (s *Server) Run(ctx context.Context) {
	go s.ChatHub.Run(ctx)
	go s.MetricsHub.Run(ctx)
	go s.runChat(ctx)
}

func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.Health)
		api.Get("/config", s.PublicConfig)
		api.Post("/nav", s.Navigate)

		api.Route("/semesters", func(sem chi.Router) {
			sem.Get("/", s.ListSemesters)
			sem.Get("/{sem}/subjects", s.ListSubjects)
			sem.Get("/{sem}/notes", s.ListEntries(services.CollectionNotes))
			sem.Get("/{sem}/videos", s.ListEntries(services.CollectionVideos))
		})

		api.Post("/auth/signin", s.SignIn)
		api.With(WithAuth(s.Sessions)).Post("/auth/signout", s.SignOut)
		api.With(WithAuth(s.Sessions)).Get("/me", s.Me)

		api.Get("/chat", s.ChatHistory)
		api.With(WithAuth(s.Sessions)).Post("/chat", s.PostChat)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Sessions))
			admin.Use(s.RequireRole(models.Role.IsAdmin))

			admin.Route("/semesters/{sem}", func(sem chi.Router) {
				for _, collection := range []services.Collection{services.CollectionNotes, services.CollectionVideos} {
					sem.Route("/"+string(collection), func(entries chi.Router) {
						entries.Post("/", s.AddEntry(collection))
						entries.Put("/{id}", s.UpdateEntry(collection))
						entries.Delete("/{id}", s.DeleteEntry(collection))
					})
				}
				sem.Route("/subjects", func(subjects chi.Router) {
					subjects.Post("/", s.AddSubject)
					subjects.Put("/{id}", s.EditSubject)
					subjects.Delete("/{id}", s.DeleteSubject)
				})
			})

			admin.Group(func(super chi.Router) {
				super.Use(s.RequireRole(models.Role.IsSuperAdmin))
				super.Get("/metrics/history", s.MetricsHistory)
				super.Route("/admins", func(admins chi.Router) {
					admins.Get("/", s.ListAdmins)
					admins.Get("/deletable", s.DeletableAdmins)
					admins.Post("/", s.AddAdmin)
					admins.Delete("/{id}", s.DeleteAdmin)
				})
			})
		})
	})

	r.Get("/ws/chat", s.ChatSocket)
	r.Get("/ws/metrics", s.MetricsSocket)
	return r
}
