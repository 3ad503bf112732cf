package routes

import (
	"net/http"

	"voyago/auth"
	"voyago/credits"
	"voyago/export"
	"voyago/middleware"
	"voyago/profile"
	"voyago/ratelim"
	"voyago/tripgen"
	"voyago/trips"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/trippic/*filepath", http.Dir("static/trippic"))
	router.ServeFiles("/static/userpic/*filepath", http.Dir("static/userpic"))
}

func AddAuthRoutes(router *httprouter.Router) {
	router.POST("/api/auth/register", auth.Register)
	router.POST("/api/auth/login", auth.Login)
	router.POST("/api/auth/logout", auth.Logout)
	router.POST("/api/auth/token/refresh", auth.RefreshToken)
}

func AddProfileRoutes(router *httprouter.Router) {
	router.GET("/api/profile", middleware.Authenticate(profile.GetProfile))
	router.PUT("/api/profile", middleware.Authenticate(profile.EditProfile))
	router.POST("/api/profile/avatar", middleware.Authenticate(profile.UploadAvatar))
}

func AddTripRoutes(router *httprouter.Router) {
	router.POST("/api/trips", middleware.Authenticate(trips.CreateTrip))
	router.GET("/api/trips", middleware.Authenticate(trips.GetTrips))
	router.GET("/api/search/trips", middleware.Authenticate(trips.SearchTrips))
	router.GET("/api/trips/:id", middleware.Authenticate(trips.GetTrip))
	router.PUT("/api/trips/:id", middleware.Authenticate(trips.UpdateTrip))
	router.DELETE("/api/trips/:id", middleware.Authenticate(trips.DeleteTrip))
	router.POST("/api/trips/:id/cover", middleware.Authenticate(trips.UploadCover))
}

func AddGenerationRoutes(router *httprouter.Router, h *tripgen.Handlers, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/trips/:id/generate", rateLimiter.Limit(middleware.Authenticate(h.StartGeneration)))
	router.POST("/api/trips/:id/generate/events", middleware.Authenticate(h.SelectEvents))
	router.POST("/api/trips/:id/generate/skip-events", middleware.Authenticate(h.SkipEvents))
	router.POST("/api/trips/:id/generate/cancel", middleware.Authenticate(h.CancelGeneration))
	router.POST("/api/trips/:id/generate/retry", middleware.Authenticate(h.RetryGeneration))
	router.GET("/api/trips/:id/generate/status", middleware.Authenticate(h.GenerationStatus))
	router.GET("/ws/trips/:id/generate", h.StreamGeneration)
}

func AddCreditRoutes(router *httprouter.Router, ledger *credits.Ledger, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/credits/balance", middleware.Authenticate(ledger.GetBalance))
	router.GET("/api/credits/history", middleware.Authenticate(ledger.GetHistory))
	router.POST("/api/credits/topup", rateLimiter.Limit(middleware.Authenticate(ledger.TopUp)))
}

func AddExportRoutes(router *httprouter.Router) {
	router.GET("/api/trips/:id/export/pdf", middleware.Authenticate(export.TripPDF))
}
