package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"ChatProject/logger"
	"ChatProject/middleware"
	"ChatProject/module/user/service"
	"ChatProject/module/user/store"
)

// Handler exposes the user domain over REST.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler { return &Handler{svc: svc} }

type signupReq struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.svc.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		logger.Errorf("[user] signup %q: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrBadCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
		return
	}
	if err != nil {
		logger.Errorf("[user] login %q: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Logout(c *gin.Context) {
	uid, ok := authedID(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), uid); err != nil {
		logger.Errorf("[user] logout id=%d: %v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) List(c *gin.Context) {
	users, err := h.svc.Users(c.Request.Context())
	if err != nil {
		logger.Errorf("[user] list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) Online(c *gin.Context) {
	users, err := h.svc.OnlineUsers(c.Request.Context())
	if err != nil {
		logger.Errorf("[user] online list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) GetProfile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad user id"})
		return
	}
	p, err := h.svc.Profile(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	if err != nil {
		logger.Errorf("[user] profile id=%d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type updateProfileReq struct {
	Bio string `json:"bio"`
}

// UpdateProfile only lets a user edit their own profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	uid, ok := authedID(c)
	if !ok {
		return
	}
	target, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || target != uid {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your profile"})
		return
	}
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.UpdateProfile(c.Request.Context(), uid, req.Bio)
	if err != nil {
		logger.Errorf("[user] update profile id=%d: %v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// authedID pulls the numeric user id the auth middleware stored.
func authedID(c *gin.Context) (int64, bool) {
	uid, err := strconv.ParseInt(middleware.UserID(c), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
		return 0, false
	}
	return uid, true
}
