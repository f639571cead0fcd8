package http

import (
	"log/slog"

	"github.com/geocoder89/skillswap/internal/config"
	"github.com/geocoder89/skillswap/internal/domain/user"
	"github.com/geocoder89/skillswap/internal/http/handlers"
	"github.com/geocoder89/skillswap/internal/http/middlewares"
	"github.com/geocoder89/skillswap/internal/observability"
	"github.com/geocoder89/skillswap/internal/realtime"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// uploadOverhead leaves room for the multipart framing around the file.
const uploadOverhead = 1 << 20

// Deps is everything the router mounts. Prom, Rooms and Checks are optional.
type Deps struct {
	Config    config.Config
	Prom      *observability.Prom
	Tokens    middlewares.TokenVerifier
	Users     middlewares.UserLookup
	Accounts  handlers.AccountService
	Directory handlers.DirectoryService
	Swaps     handlers.SwapService
	Admin     handlers.AdminService
	Rooms     handlers.RoomServer
	UploadDir string
	Checks    map[string]handlers.Pinger
}

func NewRouter(log *slog.Logger, deps Deps) *gin.Engine {
	cfg := deps.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))

	// health
	health := handlers.NewHealthHandler(cfg.Env, deps.Checks)
	r.GET("/health", health.Health)
	r.GET("/api/health", health.Health)
	r.GET("/readyz", health.Readyz)

	if deps.Prom != nil {
		r.GET("/metrics", gin.WrapH(deps.Prom.Handler()))
	}

	if deps.UploadDir != "" {
		r.Static("/uploads", deps.UploadDir)
	}

	authMW := middlewares.NewAuthMiddleware(deps.Tokens, deps.Users)

	if deps.Rooms != nil {
		ws := handlers.NewWSHandler(deps.Rooms, realtime.Upgrader(middlewares.OriginAllowed(cfg.CORSOrigins)))
		r.GET("/ws", authMW.RequireAuthOrQuery(), ws.Connect)
	}

	limiter := middlewares.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	// authenticated routes also count against the caller's own budget
	requireAuth := []gin.HandlerFunc{authMW.RequireAuth()}
	if cfg.UserRateLimitRequests > 0 {
		userLimiter := middlewares.NewRateLimiter(cfg.UserRateLimitRequests, cfg.RateLimitWindow)
		requireAuth = append(requireAuth, userLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	}

	// Routes answer at the root and under /api.
	for _, prefix := range []string{"", "/api"} {
		g := r.Group(prefix, limiter.RateLimiterMiddleware(middlewares.KeyByIP))
		mountRoutes(g, authMW, requireAuth, deps)
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Not found - "+ctx.Request.URL.Path)
	})

	log.Debug("router ready", "env", cfg.Env)

	return r
}

func mountRoutes(g *gin.RouterGroup, authMW *middlewares.AuthMiddleware, requireAuth []gin.HandlerFunc, deps Deps) {
	cfg := deps.Config

	jsonBody := []gin.HandlerFunc{
		middlewares.MaxBodyBytes(cfg.MaxBodyBytes),
		middlewares.RequireJSON(),
	}
	withJSON := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, jsonBody...), h)
	}

	authed := func(hs ...gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, requireAuth...), hs...)
	}

	authH := handlers.NewAuthHandler(deps.Accounts)
	usersH := handlers.NewUsersHandler(deps.Directory, deps.Accounts, cfg.MaxFileSize)
	skillsH := handlers.NewSkillsHandler(deps.Directory, deps.Accounts)
	swapsH := handlers.NewSwapsHandler(deps.Swaps)
	adminH := handlers.NewAdminHandler(deps.Admin)

	authGroup := g.Group("/auth")
	authGroup.POST("/register", withJSON(authH.Register)...)
	authGroup.POST("/login", withJSON(authH.Login)...)
	authGroup.GET("/profile", authed(authH.Profile)...)
	authGroup.PUT("/profile", authed(withJSON(authH.UpdateProfile)...)...)

	users := g.Group("/users")
	users.GET("", usersH.List)
	users.POST("/upload-photo", authed(middlewares.MaxBodyBytes(cfg.MaxFileSize+uploadOverhead), usersH.UploadPhoto)...)
	users.GET("/:id", usersH.Get)

	skills := g.Group("/skills")
	skills.GET("", skillsH.List)
	skills.POST("", authed(withJSON(skillsH.Add)...)...)
	skills.DELETE("/:id", authed(withJSON(skillsH.Remove)...)...)

	swaps := g.Group("/swaps", authed(middlewares.MaxBodyBytes(cfg.MaxBodyBytes), middlewares.RequireJSON())...)
	swaps.POST("/request", swapsH.Create)
	swaps.GET("/received", swapsH.Received)
	swaps.GET("/sent", swapsH.Sent)
	swaps.GET("/:id", swapsH.Get)
	swaps.PUT("/:id/accept", swapsH.Accept)
	swaps.PUT("/:id/reject", swapsH.Reject)
	swaps.PUT("/:id/complete", swapsH.Complete)
	swaps.PUT("/:id/cancel", swapsH.Cancel)
	swaps.DELETE("/:id", swapsH.Delete)
	swaps.POST("/:id/rate", swapsH.Rate)

	adminGroup := g.Group("/admin", authed(authMW.RequireRole(user.RoleAdmin))...)
	adminGroup.GET("/users", adminH.Users)
	adminGroup.PUT("/users/:id/ban", adminH.Ban)
	adminGroup.PUT("/users/:id/unban", adminH.Unban)
	adminGroup.GET("/stats", adminH.Stats)
	adminGroup.GET("/reports", adminH.Reports)
}

