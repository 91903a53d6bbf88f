package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"ChatProject/logger"
	"ChatProject/middleware"
	"ChatProject/module/chat/service"
	"ChatProject/module/chat/store"
)

// Handler exposes the chat/message domain over REST. The gateway's
// WebSocket side never calls into here; history and CRUD are strictly
// request/response.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler { return &Handler{svc: svc} }

type startChatReq struct {
	RecipientID int64 `json:"recipient_id" binding:"required"`
}

func (h *Handler) StartChat(c *gin.Context) {
	uid, ok := authedID(c)
	if !ok {
		return
	}
	var req startChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chat, created, err := h.svc.StartChat(c.Request.Context(), uid, req.RecipientID)
	if err != nil {
		logger.Errorf("[chat] start %d<->%d: %v", uid, req.RecipientID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "start chat failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat, "created": created})
}

func (h *Handler) List(c *gin.Context) {
	uid, ok := authedID(c)
	if !ok {
		return
	}
	chats, err := h.svc.Chats(c.Request.Context(), uid)
	if err != nil {
		logger.Errorf("[chat] list user=%d: %v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *Handler) Get(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	chat, err := h.svc.Chat(c.Request.Context(), chatID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		logger.Errorf("[chat] get id=%d: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *Handler) Delete(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	err := h.svc.DeleteChat(c.Request.Context(), chatID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		logger.Errorf("[chat] delete id=%d: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type sendMessageReq struct {
	Content   string `json:"content" binding:"required"`
	MediaType string `json:"media_type"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	uid, ok := authedID(c)
	if !ok {
		return
	}
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.svc.SendMessage(c.Request.Context(), chatID, uid, req.Content, req.MediaType)
	if errors.Is(err, service.ErrNotParticipant) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	if err != nil {
		logger.Errorf("[chat] send chat=%d sender=%d: %v", chatID, uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) Messages(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	msgs, err := h.svc.Messages(c.Request.Context(), chatID)
	if err != nil {
		logger.Errorf("[chat] messages chat=%d: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) LatestMessage(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	msg, err := h.svc.LatestMessage(c.Request.Context(), chatID)
	if errors.Is(err, store.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no messages"})
		return
	}
	if err != nil {
		logger.Errorf("[chat] latest chat=%d: %v", chatID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "latest failed"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) UserMessages(c *gin.Context) {
	uid, ok := authedID(c)
	if !ok {
		return
	}
	msgs, err := h.svc.UserMessages(c.Request.Context(), uid)
	if err != nil {
		logger.Errorf("[chat] user messages user=%d: %v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) MarkRead(c *gin.Context) {
	uid, ok := authedID(c)
	if !ok {
		return
	}
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	if err := h.svc.MarkMessagesRead(c.Request.Context(), chatID, uid); err != nil {
		logger.Errorf("[chat] mark read chat=%d user=%d: %v", chatID, uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark read failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	msgID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	err := h.svc.DeleteMessage(c.Request.Context(), msgID)
	if errors.Is(err, store.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err != nil {
		logger.Errorf("[chat] delete message id=%d: %v", msgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func authedID(c *gin.Context) (int64, bool) {
	uid, err := strconv.ParseInt(middleware.UserID(c), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
		return 0, false
	}
	return uid, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad " + name})
		return 0, false
	}
	return id, true
}
