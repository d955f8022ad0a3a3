package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/model"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// GoogleLogin godoc
// @Summary Login with a Google ID token
// @Description Verifies the ID token, upserts the user by email and issues an access/refresh pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.GoogleLoginRequest true "Google ID token"
// @Success 200 {object} model.Envelope{data=model.AuthResponse}
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/google [post]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req model.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	resp, err := h.svc.LoginWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Wrap(resp))
}

// Register godoc
// @Summary Register an email/password account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Registration payload"
// @Success 200 {object} model.Envelope{data=model.AuthResponse}
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Wrap(resp))
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Credentials"
// @Success 200 {object} model.Envelope{data=model.AuthResponse}
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Wrap(resp))
}

// Refresh godoc
// @Summary Rotate a refresh credential
// @Description Revokes the presented refresh token and returns a new access/refresh pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RefreshRequest true "Refresh token"
// @Success 200 {object} model.Envelope{data=model.RefreshResponse}
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req model.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
		return
	}

	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Wrap(resp))
}

// Logout godoc
// @Summary Logout
// @Description Revokes the refresh token. Idempotent: unknown tokens still return 200.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LogoutRequest true "Refresh token"
// @Success 200 {object} model.Envelope{data=model.MessageResponse}
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req model.LogoutRequest
	// a malformed body still logs out; the client is clearing state either way
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Wrap(model.MessageResponse{Message: "logged out"}))
}

// Me godoc
// @Summary Get the current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Envelope{data=model.User}
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	auth := GetAuthUser(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), auth.ID)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Wrap(user))
}

// CompleteOnboarding godoc
// @Summary Mark onboarding as completed
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Envelope{data=model.User}
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/onboarding [patch]
func (h *AuthHandler) CompleteOnboarding(c *gin.Context) {
	auth := GetAuthUser(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.svc.CompleteOnboarding(c.Request.Context(), auth.ID)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Wrap(user))
}

func writeAuthError(c *gin.Context, err error) {
	switch err {
	case service.ErrInvalidInput:
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid input"})
	case service.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
	case service.ErrConflict:
		c.JSON(http.StatusConflict, model.ErrorResponse{Error: "already exists"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
	}
}
