package server

import (
	"net/http"

	"backend/internal/config"
	"backend/internal/crypto"
	"backend/internal/google"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	log    *logrus.Logger
	logger *zap.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger, log *logrus.Logger) (*Server, error) {
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		log:    log,
		logger: logger,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	codec, err := token.NewCodec(s.cfg.Auth.SecretKey, s.cfg.Auth.Algorithm)
	if err != nil {
		return err
	}

	// Initialize Auth components
	hasher := crypto.NewHasher()
	provider := google.NewClient(s.cfg.Google.ClientID, s.cfg.Google.ClientSecret, s.cfg.Google.RedirectURL)
	userRepo := repository.NewUserRepository(s.db, s.log)
	tokenRepo := repository.NewTokenRepository(s.db, hasher, s.log)
	authService := service.NewAuthService(userRepo, tokenRepo, codec, provider, s.cfg, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.log)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	v1 := s.router.Group("/api/v1")
	v1.GET("/login", authHandler.Login)
	v1.POST("/swap_token", authHandler.SwapToken)
	v1.POST("/refresh_access_token", authHandler.RefreshAccessToken)

	// Routes behind a valid access token
	authRequired := v1.Group("")
	authRequired.Use(middleware.AuthMiddleware(authService, s.logger))
	{
		authRequired.GET("/logout", authHandler.Logout)
		authRequired.GET("/user/info", authHandler.UserInfo)
	}

	return nil
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
