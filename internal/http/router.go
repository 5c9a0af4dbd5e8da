package http

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/ricckyzdev/customerhub/internal/auth"
	"github.com/ricckyzdev/customerhub/internal/cache"
	"github.com/ricckyzdev/customerhub/internal/config"
	"github.com/ricckyzdev/customerhub/internal/http/handlers"
	"github.com/ricckyzdev/customerhub/internal/http/middlewares"
	"github.com/ricckyzdev/customerhub/internal/observability"
	"github.com/ricckyzdev/customerhub/internal/repo/postgres"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(pool *pgxpool.Pool, rdb *redis.Client, cfg config.Config) *gin.Engine {
	cfgEnv := os.Getenv("APP_ENV")

	if cfgEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// metrics registry

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	prom := observability.NewProm(registry)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware("customerhub"))
	r.Use(prom.GinHandleMiddleware())

	// health

	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// wire up repositories

	usersRepo := postgres.NewUsersRepo(pool, prom)
	customersRepo := postgres.NewCustomersRepo(pool, prom)
	rolesRepo := postgres.NewRolesRepo(pool, prom)

	// auth plumbing

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL())
	authmw := middlewares.NewAuthMiddleware(jwtManager, rolesRepo)
	loginLimiter := middlewares.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, rdb)

	// handlers

	usersHandler := handlers.NewUsersHandler(usersRepo, jwtManager)
	customersHandler := handlers.NewCustomersHandler(customersRepo, cache.New(5*time.Second))

	api := r.Group("/api")

	api.GET("/users", authmw.RequireAuth(), authmw.RequireRole(postgres.RoleAdmin), usersHandler.ListUsers)
	api.POST("/users", usersHandler.Register)
	api.PUT("/users/:id", usersHandler.UpdateUser)
	api.DELETE("/users/:id", usersHandler.DeleteUser)
	api.POST("/users/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.Login)

	api.GET("/customers", authmw.RequireAuth(), customersHandler.ListCustomers)
	api.GET("/customers/:id", customersHandler.GetCustomerByID)
	api.POST("/customers", customersHandler.CreateCustomer)
	api.PUT("/customers/:id", customersHandler.UpdateCustomer)

	return r
}
