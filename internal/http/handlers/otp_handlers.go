package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthsync/healthsync/domain"
)

// OTPHandlers handles one-time-passcode HTTP requests
type OTPHandlers struct {
	otpSvc domain.OTPService
}

// NewOTPHandlers creates new OTP handlers
func NewOTPHandlers(otpSvc domain.OTPService) *OTPHandlers {
	return &OTPHandlers{otpSvc: otpSvc}
}

// SendOTPRequest represents an OTP send request
type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Type  string `json:"type" binding:"required"`
}

// VerifyOTPRequest represents an OTP verification request
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
	Type  string `json:"type" binding:"required"`
}

// SendOTP generates and emails a code for the given purpose
func (h *OTPHandlers) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := h.otpSvc.Generate(c.Request.Context(), req.Email, req.Type); err != nil {
		if errors.Is(err, domain.ErrOTPResendWait) {
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Please wait before requesting a new code"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send verification code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// VerifyOTP checks a submitted code
func (h *OTPHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	valid, err := h.otpSvc.Verify(c.Request.Context(), req.Email, req.OTP, req.Type)
	if err != nil {
		switch err {
		case domain.ErrOTPNotFound:
			c.JSON(http.StatusNotFound, gin.H{"message": "No verification code found, please request a new one"})
		case domain.ErrOTPExpired:
			c.JSON(http.StatusBadRequest, gin.H{"message": "Verification code has expired"})
		case domain.ErrOTPMaxAttempts:
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Maximum attempts exceeded, please request a new code"})
		case domain.ErrOTPInvalid:
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid verification code"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Verification failed"})
		}
		return
	}

	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid verification code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "verified": true})
}
