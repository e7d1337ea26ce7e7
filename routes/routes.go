package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/futside/handlers"
	"github.com/Dosada05/futside/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	fieldHandler *handlers.FieldHandler,
	matchHandler *handlers.MatchHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/users", func(r chi.Router) {
		r.Get("/{userID}", userHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/me/push-token", userHandler.RegisterPushToken)
		})
	})

	router.Route("/fields", func(r chi.Router) {
		r.Get("/", fieldHandler.List)
		r.Get("/{fieldID}", fieldHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", fieldHandler.Create)
			r.Post("/{fieldID}/photo", fieldHandler.UploadPhoto)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", matchHandler.List)
		r.Get("/{matchID}", matchHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", matchHandler.Create)
			r.Post("/{matchID}/join", matchHandler.Join)
			r.Post("/{matchID}/start", matchHandler.Start)
			r.Post("/{matchID}/cancel", matchHandler.Cancel)
			r.Put("/{matchID}/score", matchHandler.UpdateScore)
		})
	})

	router.Route("/subscriptions", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/", subscriptionHandler.Subscribe)
		r.Delete("/", subscriptionHandler.Unsubscribe)
		r.Get("/", subscriptionHandler.ListMine)
	})

	// WebSocket-зеркало MQTT-топиков для браузерных клиентов.
	router.Get("/ws/region/{city}", webSocketHandler.ServeRegion)
	router.Get("/ws/matches/{matchID}", webSocketHandler.ServeMatch)
}
