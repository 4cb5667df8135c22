package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"watchparty-service/internal/models"
	"watchparty-service/internal/repositories"
	"watchparty-service/internal/telemetry"
)

// AuthHandler manages sign-in, registration and login endpoints.
type AuthHandler struct {
	userRepo repositories.UserRepository
	emitter  *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(userRepo repositories.UserRepository, emitter *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, emitter: emitter}
}

// SignIn creates the user on first federated sign-in. Repeated calls for a
// known id are no-ops; the response does not distinguish the two cases.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req struct {
		UserID     string  `json:"userId" binding:"required"`
		Name       *string `json:"name"`
		Email      string  `json:"email" binding:"required"`
		ProfilePic *string `json:"profilePic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and email are required."})
		return
	}

	user := models.User{ID: req.UserID, Name: req.Name, Email: req.Email, ProfilePic: req.ProfilePic}
	if err := h.userRepo.EnsureUser(c.Request.Context(), user); err != nil {
		log.Printf("sign-in failed for %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "user signed in", requestIDFromContext(c), auditUserID(req.UserID))
	c.JSON(http.StatusOK, gin.H{"message": "Authentication successful."})
}

// Register creates a manually registered user with a generated id. The
// password is accepted but never stored or hashed; nothing in the service
// verifies it later.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, email, and password are required."})
		return
	}

	userID := "manual-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	user := models.User{ID: userID, Name: &req.Name, Email: req.Email}
	if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "This email is already registered. Please try logging in."})
			return
		}
		log.Printf("registration failed for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "user registered", requestIDFromContext(c), auditUserID(userID))
	c.JSON(http.StatusOK, gin.H{
		"userId":     userID,
		"name":       req.Name,
		"email":      req.Email,
		"profilePic": nil,
	})
}

// Login looks the user up by email. The password is not compared against any
// stored credential: registration discards it, so any password passes for an
// existing email.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required."})
		return
	}

	user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials."})
			return
		}
		log.Printf("login failed for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "user logged in", requestIDFromContext(c), auditUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{
		"userId":     user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"profilePic": user.ProfilePic,
	})
}
