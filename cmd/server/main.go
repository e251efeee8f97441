package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/studysphere/api/internal/config"
	"github.com/studysphere/api/internal/database"
	"github.com/studysphere/api/internal/handler"
	"github.com/studysphere/api/internal/jobs"
	"github.com/studysphere/api/internal/middleware"
	"github.com/studysphere/api/internal/repository"
	"github.com/studysphere/api/internal/service"
	"github.com/studysphere/api/pkg/jwt"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Initialize JWT service
	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	rsvpRepo := repository.NewRSVPRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	counts := repository.NewCounts(userRepo, groupRepo, sessionRepo)

	// Initialize services
	tokenService := service.NewTokenService(service.TokenServiceConfig{
		JWTService: jwtService,
		TokenRepo:  tokenRepo,
	})

	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     userRepo,
		IdentityRepo: identityRepo,
		TokenService: tokenService,
	})

	oauthService := service.NewOAuthService(service.OAuthServiceConfig{
		Config: service.GoogleOAuthConfig{
			ClientID: cfg.OAuth.Google.ClientID,
		},
		IdentityRepo: identityRepo,
		UserRepo:     userRepo,
		TokenService: tokenService,
	})

	gamificationService := service.NewGamificationService(service.GamificationServiceConfig{
		Repo: userRepo,
	})

	groupService := service.NewGroupService(service.GroupServiceConfig{
		GroupRepo:      groupRepo,
		MembershipRepo: membershipRepo,
		UserRepo:       userRepo,
		Gamification:   gamificationService,
	})

	sessionService := service.NewSessionService(service.SessionServiceConfig{
		SessionRepo:    sessionRepo,
		RSVPRepo:       rsvpRepo,
		MembershipRepo: membershipRepo,
		UserRepo:       userRepo,
		Gamification:   gamificationService,
	})

	collaborationService := service.NewCollaborationService(service.CollaborationServiceConfig{
		SessionRepo:  sessionRepo,
		RSVPRepo:     rsvpRepo,
		MessageRepo:  messageRepo,
		ResourceRepo: resourceRepo,
		UserRepo:     userRepo,
	})

	statsService := service.NewStatsService(service.StatsServiceConfig{
		LeaderboardRepo: userRepo,
		BadgeRepo:       badgeRepo,
		CountsRepo:      counts,
		GroupRepo:       groupRepo,
		MembershipRepo:  membershipRepo,
		RSVPRepo:        rsvpRepo,
		SessionRepo:     sessionRepo,
		UserRepo:        userRepo,
		SessionService:  sessionService,
	})

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:   100, // 100 requests per minute
		Window: time.Minute,
		Burst:  20, // Allow bursts up to 20
	})
	defer rateLimiter.Stop()

	// Initialize idempotency store
	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL:     24 * time.Hour,
		Cleanup: time.Hour,
	})
	defer idempotencyStore.Stop()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	oauthHandler := handler.NewOAuthHandler(oauthService)
	profileHandler := handler.NewProfileHandler(authService, statsService)
	groupHandler := handler.NewGroupHandler(groupService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	collaborationHandler := handler.NewCollaborationHandler(collaborationService)
	statsHandler := handler.NewStatsHandler(statsService)

	// Create router and register routes
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", handler.Health)

	// Auth endpoints (public)
	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /v1/auth/oauth/google", oauthHandler.Google)

	// Auth endpoints (protected)
	authMiddleware := middleware.Auth(tokenService)
	adminMiddleware := middleware.AdminAuth(tokenService)
	sessionAccess := middleware.SessionAccess(sessionService)
	mux.Handle("POST /v1/auth/logout", authMiddleware(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /v1/auth/me", authMiddleware(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /v1/auth/password", authMiddleware(http.HandlerFunc(authHandler.ChangePassword)))

	// Profile endpoints
	mux.Handle("GET /v1/profile", authMiddleware(http.HandlerFunc(profileHandler.Get)))
	mux.Handle("PATCH /v1/profile", authMiddleware(http.HandlerFunc(profileHandler.Update)))
	mux.Handle("GET /v1/profile/badges", authMiddleware(http.HandlerFunc(statsHandler.Badges)))
	mux.Handle("GET /v1/users/{userId}/profile", authMiddleware(http.HandlerFunc(profileHandler.GetUser)))

	// Study group endpoints
	mux.Handle("GET /v1/groups", authMiddleware(http.HandlerFunc(groupHandler.List)))
	mux.Handle("POST /v1/groups", authMiddleware(http.HandlerFunc(groupHandler.Create)))
	mux.Handle("GET /v1/groups/{groupId}", authMiddleware(http.HandlerFunc(groupHandler.Get)))
	mux.Handle("PATCH /v1/groups/{groupId}", authMiddleware(http.HandlerFunc(groupHandler.Update)))
	mux.Handle("DELETE /v1/groups/{groupId}", authMiddleware(http.HandlerFunc(groupHandler.Delete)))
	mux.Handle("POST /v1/groups/{groupId}/join", authMiddleware(http.HandlerFunc(groupHandler.Join)))
	mux.Handle("POST /v1/groups/{groupId}/leave", authMiddleware(http.HandlerFunc(groupHandler.Leave)))
	mux.Handle("GET /v1/groups/{groupId}/sessions", authMiddleware(http.HandlerFunc(sessionHandler.ListForGroup)))

	// Study session endpoints
	mux.Handle("GET /v1/sessions", authMiddleware(http.HandlerFunc(sessionHandler.List)))
	mux.Handle("POST /v1/sessions", authMiddleware(http.HandlerFunc(sessionHandler.Create)))
	mux.Handle("GET /v1/sessions/{sessionId}", authMiddleware(http.HandlerFunc(sessionHandler.Get)))
	mux.Handle("PATCH /v1/sessions/{sessionId}", authMiddleware(http.HandlerFunc(sessionHandler.Update)))
	mux.Handle("DELETE /v1/sessions/{sessionId}", authMiddleware(http.HandlerFunc(sessionHandler.Delete)))
	mux.Handle("POST /v1/sessions/{sessionId}/rsvp", authMiddleware(http.HandlerFunc(sessionHandler.RSVP)))
	mux.Handle("DELETE /v1/sessions/{sessionId}/rsvp", authMiddleware(http.HandlerFunc(sessionHandler.CancelRSVP)))
	mux.Handle("POST /v1/sessions/{sessionId}/attendance", authMiddleware(http.HandlerFunc(sessionHandler.MarkAttendance)))

	// Collaboration endpoints - attendees only
	mux.Handle("GET /v1/sessions/{sessionId}/messages", authMiddleware(sessionAccess(http.HandlerFunc(collaborationHandler.ListMessages))))
	mux.Handle("POST /v1/sessions/{sessionId}/messages", authMiddleware(sessionAccess(http.HandlerFunc(collaborationHandler.SendMessage))))
	mux.Handle("GET /v1/sessions/{sessionId}/resources", authMiddleware(sessionAccess(http.HandlerFunc(collaborationHandler.ListResources))))
	mux.Handle("POST /v1/sessions/{sessionId}/resources", authMiddleware(sessionAccess(http.HandlerFunc(collaborationHandler.AddResource))))
	mux.Handle("DELETE /v1/sessions/{sessionId}/resources/{resourceId}", authMiddleware(sessionAccess(http.HandlerFunc(collaborationHandler.DeleteResource))))

	// Gamification endpoints
	mux.Handle("GET /v1/leaderboard", authMiddleware(http.HandlerFunc(statsHandler.Leaderboard)))
	mux.Handle("GET /v1/dashboard", authMiddleware(http.HandlerFunc(statsHandler.Dashboard)))

	// Admin endpoints - requires admin role
	mux.Handle("GET /v1/admin/overview", adminMiddleware(http.HandlerFunc(statsHandler.AdminOverview)))
	mux.Handle("POST /v1/admin/groups/{groupId}/approve", adminMiddleware(http.HandlerFunc(groupHandler.Approve)))
	mux.Handle("POST /v1/admin/groups/{groupId}/reject", adminMiddleware(http.HandlerFunc(groupHandler.Reject)))

	// Apply global middleware
	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.RateLimit(rateLimiter),
		middleware.Idempotency(idempotencyStore),
		middleware.Compress,
	)

	// Background jobs
	tokenCleanup := jobs.NewTokenCleanup(tokenRepo, slog.Default(), 1*time.Hour)
	tokenCleanup.Start()

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	tokenCleanup.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}
