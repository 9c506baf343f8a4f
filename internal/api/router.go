package api

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bdms/donor-directory/internal/api/handler"
	"github.com/bdms/donor-directory/internal/api/middleware"
	"github.com/bdms/donor-directory/internal/core/service"
	mongodb "github.com/bdms/donor-directory/internal/infrastructure/db/mongo"
	redisdb "github.com/bdms/donor-directory/internal/infrastructure/db/redis"
	"github.com/bdms/donor-directory/internal/infrastructure/http/handlers"
)

// RouterOptions carries everything NewRouter needs beyond the store handles.
type RouterOptions struct {
	JWTSecret   string
	AdminKey    string
	TokenTTL    time.Duration
	LoginLimit  int
	LoginWindow time.Duration
	Logger      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, opts RouterOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Dependencies ---
	tokens := service.NewTokenIssuer(opts.JWTSecret, opts.TokenTTL)
	limiter := redisdb.NewLoginLimiter(rdb, opts.LoginLimit, opts.LoginWindow)

	donorRepo := mongodb.NewDonorRepository(db)
	donorService := service.NewDonorService(donorRepo, tokens, limiter, opts.Logger.With().Str("component", "donor_service").Logger())
	donorHandler := handler.NewDonorHandler(donorService)

	contactRepo := mongodb.NewContactRepository(db)
	contactService := service.NewContactService(contactRepo, opts.Logger.With().Str("component", "contact_service").Logger())
	contactHandler := handler.NewContactHandler(contactService)

	authGuard := middleware.Auth(tokens)
	adminGuard := middleware.Admin(opts.AdminKey)

	// --- Donor routes ---
	e.POST("/v1/donors", donorHandler.Register)
	e.POST("/v1/donors/login", donorHandler.Login)
	e.POST("/v1/donors/search", donorHandler.Search)
	e.GET("/v1/donors", donorHandler.List)
	e.GET("/v1/donors/:id", donorHandler.Get)
	e.PUT("/v1/donors/:id", donorHandler.Update, authGuard)
	e.DELETE("/v1/donors/:id", donorHandler.Delete, adminGuard)

	// --- Contact-message routes ---
	e.POST("/v1/contacts", contactHandler.Add)
	e.GET("/v1/contacts", contactHandler.List, adminGuard)
	e.DELETE("/v1/contacts/:id", contactHandler.Delete, adminGuard)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
