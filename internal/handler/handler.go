package handler

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"presensi/internal/apperr"
	"presensi/internal/attendance"
	"presensi/internal/httpmiddleware"
	"presensi/internal/model"
	"presensi/internal/user"
)

// Users is the identity service consumed by the handlers.
type Users interface {
	Register(ctx context.Context, in user.RegisterInput) (model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	FindOne(ctx context.Context, id uint) (model.User, error)
	Update(ctx context.Context, id uint, in user.UpdateInput) (model.User, error)
	Login(ctx context.Context, username, password string) (user.LoginResult, error)
}

// Attendance is the recorder/aggregator consumed by the handlers.
type Attendance interface {
	Record(ctx context.Context, userID uint, in attendance.CheckIn) (model.AttendanceRecord, error)
	History(ctx context.Context, userID uint) ([]model.AttendanceRecord, error)
	MonthlySummary(ctx context.Context, userID uint, year, month int) (attendance.MonthlySummary, error)
	Analysis(ctx context.Context, f attendance.CohortFilter) ([]attendance.CohortStat, error)
}

// Checker reports whether a dependency is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

type Handler struct {
	users      Users
	attendance Attendance
	loc        *time.Location
	checks     map[string]Checker

	selfRegister bool
}

// Option customizes a Handler.
type Option func(*Handler)

// WithSelfRegister mounts POST /api/auth/register for anonymous callers.
func WithSelfRegister(enabled bool) Option {
	return func(h *Handler) { h.selfRegister = enabled }
}

// New wires handlers; loc is the timezone used to read dates in requests.
func New(users Users, att Attendance, loc *time.Location, checks map[string]Checker, opts ...Option) *Handler {
	if loc == nil {
		loc = time.Local
	}
	h := &Handler{users: users, attendance: att, loc: loc, checks: checks}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the API. requireAuth guards everything except login and,
// when enabled, self-registration.
func (h *Handler) Routes(r gin.IRouter, requireAuth gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.GET("/me", requireAuth, h.Me)
		if h.selfRegister {
			authGroup.POST("/register", h.Register)
		}
	}

	users := api.Group("/users", requireAuth)
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
	}

	att := api.Group("/attendance", requireAuth)
	{
		att.POST("", h.CreateAttendance)
		att.GET("/history/:user_id", h.History)
		att.GET("/summary/:user_id", h.Summary)
		att.POST("/analysis", h.Analysis)
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for _, name := range names {
		ok := h.checks[name].Healthy(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- helpers ----------

func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Printf("request %s %s %s failed: %v", httpmiddleware.GetRequestID(c), c.Request.Method, c.FullPath(), err)
	}
	c.JSON(kind.HTTPStatus(), gin.H{"error": apperr.Message(err), "code": kind.String()})
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	h.fail(c, apperr.Invalid(msg))
}

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Invalid(param + " must be a positive integer")
	}
	return uint(id), nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Invalid(key + " must be an integer")
	}
	return n, nil
}
