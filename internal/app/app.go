package app

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthsync/healthsync/internal/config"
	httpx "github.com/healthsync/healthsync/internal/http"
	"github.com/healthsync/healthsync/internal/http/handlers"
	"github.com/healthsync/healthsync/internal/http/middleware"
	"github.com/healthsync/healthsync/internal/infrastructure/auth"
	"github.com/healthsync/healthsync/internal/infrastructure/database"
	"github.com/healthsync/healthsync/internal/infrastructure/notifications"
	"github.com/healthsync/healthsync/internal/infrastructure/repositories"
	"github.com/healthsync/healthsync/internal/services"
)

func Run(cfg *config.Config) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	gdb, err := database.Open(cfg.DSN)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(gdb); err != nil {
		return err
	}
	cas, err := auth.NewCasbinService(gdb, cfg.CasbinModelPath)
	if err != nil {
		return err
	}
	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return err
	}

	// Infrastructure services
	passwordSvc := auth.NewPasswordService()
	tokenSvc := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	notificationSvc := notifications.NewSendGridService(cfg.SendGridKey, cfg.MailFromName, cfg.MailFromEmail)

	// Repositories
	userRepo := repositories.NewUserRepository(gdb)
	sessionRepo := repositories.NewSessionRepository(rdb, cfg.TokenTTL)

	// Services
	otpConfig := services.OTPConfig{
		Length:       cfg.OTPLength,
		TTL:          cfg.OTPTTL,
		MaxAttempts:  cfg.OTPMaxAttempts,
		ResendWindow: cfg.OTPResendWindow,
	}
	otpSvc := services.NewOTPService(notificationSvc, rdb, otpConfig)
	authSvc := services.NewAuthService(userRepo, sessionRepo, passwordSvc, tokenSvc, otpSvc, cfg.TokenTTL)
	locationSvc := services.NewLocationService(userRepo)

	// Handlers
	authH := handlers.NewAuthHandlers(authSvc)
	otpH := handlers.NewOTPHandlers(otpSvc)
	locH := handlers.NewLocationHandlers(locationSvc)

	// Middleware
	jwtMW := middleware.AuthMiddleware(tokenSvc, sessionRepo)
	rbacMW := middleware.NewRBACMiddleware(cas.E)

	r := httpx.BuildRouter(authH, otpH, locH, jwtMW, rbacMW)

	policies, _ := cas.E.GetPolicy()
	if len(policies) == 0 {
		if err := cas.SeedPolicies(); err != nil {
			return err
		}
		log.Println("casbin: seeded default policies")
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	return http.ListenAndServe(addr, r)
}
