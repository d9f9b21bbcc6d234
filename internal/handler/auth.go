package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/models"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler interface {
	Login(c *gin.Context)
	SwapToken(c *gin.Context)
	RefreshAccessToken(c *gin.Context)
	Logout(c *gin.Context)
	UserInfo(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	log         *logrus.Logger
}

func NewAuthHandler(authService service.AuthService, log *logrus.Logger) AuthHandler {
	return &authHandler{authService: authService, log: log}
}

// Login redirects the browser to the provider's authorization URL.
func (h *authHandler) Login(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		generated, err := h.authService.StateToken()
		if err != nil {
			h.log.Errorf("Failed to generate state token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
			return
		}
		state = generated
	}

	c.Redirect(http.StatusTemporaryRedirect, h.authService.LoginURL(state))
}

// SwapToken checks the Google auth code and creates the token pair.
func (h *authHandler) SwapToken(c *gin.Context) {
	code := c.PostForm("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form field 'code' is required"})
		return
	}

	pair, err := h.authService.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExternalProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Code exchange failed"})
		case errors.Is(err, service.ErrIdentityVerification), errors.Is(err, service.ErrAuthentication):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
		default:
			h.log.Errorf("Failed to swap token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to login"})
		}
		return
	}

	c.JSON(http.StatusOK, pair)
}

// RefreshAccessToken rotates the pair for a presented refresh token.
func (h *authHandler) RefreshAccessToken(c *gin.Context) {
	tokenString, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
		return
	}

	user, err := h.authService.AuthenticateRefresh(c.Request.Context(), tokenString)
	if err != nil {
		if errors.Is(err, service.ErrInactiveAccount) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Inactive account"})
			return
		}
		if errors.Is(err, service.ErrAuthentication) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		h.log.Errorf("Failed to refresh token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh token"})
		return
	}

	pair, err := h.authService.IssueTokenPair(c.Request.Context(), user)
	if err != nil {
		h.log.Errorf("Failed to issue token pair for %s: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh token"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *authHandler) Logout(c *gin.Context) {
	user := currentUser(c)

	if err := h.authService.Logout(c.Request.Context(), user); err != nil {
		h.log.Errorf("Failed to logout user %s: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *authHandler) UserInfo(c *gin.Context) {
	c.JSON(http.StatusOK, newUserResponse(currentUser(c)))
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(middleware.UserKey).(*models.User)
}
