package api

import (
	"context"

	"pulp/domain/interfaces"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Services are the domain operations exposed over HTTP
type Services struct {
	Ledger       interfaces.LedgerService
	Windows      interfaces.WindowService
	Blessings    interfaces.BlessingService
	Challenges   interfaces.ChallengeService
	Advantages   interfaces.AdvantageService
	RoundResults interfaces.RoundResultsService
}

// Config controls the HTTP surface
type Config struct {
	// InternalToken guards /internal routes. Empty disables the check.
	InternalToken string
	// StartingBalance is credited to players registered without an explicit balance
	StartingBalance int64
}

// Server is the fiber application serving player actions and producer ingestion
type Server struct {
	app      *fiber.App
	services Services
	config   Config
}

// NewServer builds the fiber app and registers every route
func NewServer(services Services, cfg Config) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "pulp",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		app:      app,
		services: services,
		config:   cfg,
	}
	s.registerRoutes()
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	log.WithField("addr", addr).Info("HTTP server listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(requestID(), requestLogger())

	v1 := s.app.Group("/api/v1")
	v1.Get("/windows/active", s.getActiveWindow)
	v1.Get("/advantages/catalog", s.listCatalog)

	player := v1.Group("", playerIdentity())
	player.Post("/windows", s.openWindow)
	player.Get("/windows/:id/blessings", s.getWindowBlessings)
	player.Post("/blessings", s.placeBlessing)
	player.Get("/challenges", s.listChallenges)
	player.Post("/challenges", s.issueChallenge)
	player.Post("/challenges/:id/respond", s.respondToChallenge)
	player.Get("/advantages", s.listActiveAdvantages)
	player.Post("/advantages/purchase", s.purchaseAdvantage)
	player.Post("/advantages/use", s.useAdvantage)
	player.Get("/balance", s.getBalance)
	player.Get("/transactions", s.getTransactions)
	player.Get("/stats", s.getStats)

	internal := s.app.Group("/internal", internalAuth(s.config.InternalToken))
	internal.Post("/rounds", s.recordRound)
	internal.Post("/events/:id/participants", s.registerParticipants)
	internal.Post("/players", s.registerPlayer)
	internal.Post("/players/:id/deactivate", s.deactivatePlayer)
}
