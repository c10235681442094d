package httpx

import (
	"github.com/gin-gonic/gin"

	"github.com/healthsync/healthsync/internal/http/handlers"
	"github.com/healthsync/healthsync/internal/http/middleware"
)

func BuildRouter(ah *handlers.AuthHandlers, oh *handlers.OTPHandlers, lh *handlers.LocationHandlers, jwtmw gin.HandlerFunc, rbac *middleware.RBACMiddleware) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	auth := r.Group("/api/auth")
	auth.POST("/register", ah.Register)
	auth.POST("/login", ah.Login)
	auth.POST("/forgot-password", ah.ForgotPassword)
	auth.POST("/reset-password", ah.ResetPassword)

	otp := r.Group("/api/otp")
	otp.POST("/send-otp", oh.SendOTP)
	otp.POST("/verify-otp", oh.VerifyOTP)

	authed := r.Group("/api").Use(jwtmw)
	authed.POST("/auth/logout", ah.Logout)

	loc := r.Group("/api/location").Use(jwtmw, rbac.Enforce())
	loc.GET("/check-location-status/:userId", lh.CheckLocationStatus)
	loc.POST("/update-location", lh.UpdateLocation)

	return r
}
