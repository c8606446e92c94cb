package api

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facemark/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facemark/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facemark/internal/api/middleware"
)

type Dependencies struct {
	Service   handler.LandmarkProcessor
	Readiness handler.ReadinessChecker
}

type Config struct {
	// Host shown in the API docs
	Host string
	// StaticDir holds index.html and assets; skipped when missing
	StaticDir string
	// BodyLimit caps request bodies in bytes
	BodyLimit int
	// RateLimitRPS enables per-IP limiting when > 0
	RateLimitRPS   float64
	RateLimitBurst int
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	cfg         Config
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies, cfg Config) *Router {
	// leave headroom for the multipart envelope so oversize images reach the handler
	bodyLimit := cfg.BodyLimit
	if bodyLimit > 0 {
		bodyLimit += 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Facemark API",
		BodyLimit:    bodyLimit,
		JSONEncoder:  jsoniter.Marshal,
		JSONDecoder:  jsoniter.Unmarshal,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
		cfg:    cfg,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger(r.cfg.Host)
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	healthHandler := handler.NewHealthHandler(r.deps.Readiness)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Landmark endpoint; non-strict routing also serves the trailing slash form
	var limit []fiber.Handler
	if r.cfg.RateLimitRPS > 0 {
		r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   r.cfg.RateLimitRPS,
			Burst: r.cfg.RateLimitBurst,
		})
		limit = append(limit, r.rateLimiter.Handler())
	}
	landmarkHandler := handler.NewLandmarkHandler(r.deps.Service, int64(r.cfg.BodyLimit), r.logger)
	r.app.Post("/process-image", append(limit, landmarkHandler.ProcessImage)...)

	r.setupStatic()
}

// setupStatic serves the landing page and its assets when the directory exists.
func (r *Router) setupStatic() {
	if r.cfg.StaticDir == "" {
		return
	}
	if info, err := os.Stat(r.cfg.StaticDir); err != nil || !info.IsDir() {
		r.logger.Warn("static directory not found, landing page disabled", "dir", r.cfg.StaticDir)
		return
	}

	r.app.Static("/static", r.cfg.StaticDir)

	index := filepath.Join(r.cfg.StaticDir, "index.html")
	r.app.Get("/", func(c *fiber.Ctx) error {
		if _, err := os.Stat(index); err != nil {
			return fiber.ErrNotFound
		}
		return c.SendFile(index)
	})
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
	return r.app.Shutdown()
}
