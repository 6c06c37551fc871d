package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"presensi/internal/apperr"
	"presensi/internal/auth"
	"presensi/internal/metrics"
	"presensi/internal/model"
	"presensi/internal/user"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createUserRequest struct {
	Username    string  `json:"username" binding:"required,max=60"`
	Password    string  `json:"password" binding:"required,min=6,max=72"`
	DisplayName string  `json:"nama_lengkap" binding:"required,max=120"`
	Role        string  `json:"role" binding:"omitempty,oneof=siswa guru admin"`
	ClassGroup  *string `json:"kelas" binding:"omitempty,max=40"`
	Position    *string `json:"jabatan" binding:"omitempty,max=60"`
}

type updateUserRequest struct {
	Username    *string `json:"username" binding:"omitempty,max=60"`
	Password    *string `json:"password" binding:"omitempty,min=6,max=72"`
	DisplayName *string `json:"nama_lengkap" binding:"omitempty,max=120"`
	Role        *string `json:"role" binding:"omitempty,oneof=siswa guru admin"`
	ClassGroup  *string `json:"kelas" binding:"omitempty,max=40"`
	Position    *string `json:"jabatan" binding:"omitempty,max=60"`
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	res, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			metrics.Logins.WithLabelValues("rejected").Inc()
		}
		h.fail(c, err)
		return
	}
	metrics.Logins.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    "login successful",
		"token":      res.Token,
		"expires_at": res.ExpiresAt.Unix(),
	})
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		h.fail(c, apperr.Unauthorized("missing credentials"))
		return
	}
	u, err := h.users.FindOne(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	h.createUser(c, req)
}

// Register is anonymous sign-up. The requested role is ignored.
func (h *Handler) Register(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	req.Role = model.RoleStudent
	h.createUser(c, req)
}

func (h *Handler) createUser(c *gin.Context, req createUserRequest) {
	u, err := h.users.Register(c.Request.Context(), user.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		ClassGroup:  req.ClassGroup,
		Position:    req.Position,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.FindAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.users.FindOne(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	u, err := h.users.Update(c.Request.Context(), id, user.UpdateInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		ClassGroup:  req.ClassGroup,
		Position:    req.Position,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
