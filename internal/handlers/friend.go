package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"watchparty-service/internal/repositories"
	"watchparty-service/internal/telemetry"
)

// FriendHandler manages friend-request endpoints.
type FriendHandler struct {
	friendshipRepo repositories.FriendshipRepository
	emitter        *telemetry.AuditEmitter
}

// NewFriendHandler builds a FriendHandler.
func NewFriendHandler(friendshipRepo repositories.FriendshipRepository, emitter *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{friendshipRepo: friendshipRepo, emitter: emitter}
}

// SendRequest creates a pending friendship between two users. An existing row
// for the pair, pending or accepted, yields a conflict.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req struct {
		SenderID   string `json:"senderId" binding:"required"`
		ReceiverID string `json:"receiverId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sender and receiver IDs are required."})
		return
	}

	err := h.friendshipRepo.CreateRequest(c.Request.Context(), req.SenderID, req.ReceiverID)
	if err != nil {
		if errors.Is(err, repositories.ErrFriendshipExists) {
			c.JSON(http.StatusConflict, gin.H{"message": "Friend request already exists or they are already friends."})
			return
		}
		log.Printf("friend request failed %s->%s: %v", req.SenderID, req.ReceiverID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "friend request sent", requestIDFromContext(c), auditUserID(req.SenderID))
	c.JSON(http.StatusOK, gin.H{"message": "Friend request sent."})
}

// ListRequests returns pending requests addressed to the user.
func (h *FriendHandler) ListRequests(c *gin.Context) {
	userID := c.Param("userId")

	requests, err := h.friendshipRepo.ListPendingRequests(c.Request.Context(), userID)
	if err != nil {
		log.Printf("listing friend requests failed for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	c.JSON(http.StatusOK, requests)
}

// AcceptRequest marks the pair accepted. Accepting a pair with no pending row
// succeeds without effect.
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	senderID := c.Param("senderId")
	receiverID := c.Param("receiverId")

	if err := h.friendshipRepo.AcceptRequest(c.Request.Context(), senderID, receiverID); err != nil {
		log.Printf("accepting friend request failed %s->%s: %v", senderID, receiverID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "friend request accepted", requestIDFromContext(c), auditUserID(receiverID))
	c.JSON(http.StatusOK, gin.H{"message": "Friend request accepted."})
}

// RejectRequest deletes the pair's row, leaving no record of the rejection.
func (h *FriendHandler) RejectRequest(c *gin.Context) {
	senderID := c.Param("senderId")
	receiverID := c.Param("receiverId")

	if err := h.friendshipRepo.RejectRequest(c.Request.Context(), senderID, receiverID); err != nil {
		log.Printf("rejecting friend request failed %s->%s: %v", senderID, receiverID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "friend request rejected", requestIDFromContext(c), auditUserID(receiverID))
	c.JSON(http.StatusOK, gin.H{"message": "Friend request rejected."})
}

// ListFriends returns the other party of every accepted friendship of the user.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := c.Param("userId")

	friends, err := h.friendshipRepo.ListFriends(c.Request.Context(), userID)
	if err != nil {
		log.Printf("listing friends failed for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
		return
	}

	c.JSON(http.StatusOK, friends)
}
