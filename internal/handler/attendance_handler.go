package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"presensi/internal/apperr"
	"presensi/internal/attendance"
	"presensi/internal/auth"
	"presensi/internal/metrics"
	"presensi/internal/model"
)

type checkInRequest struct {
	Date      *string    `json:"tanggal"`
	CheckInAt *time.Time `json:"jam_masuk"`
	Status    string     `json:"status" binding:"omitempty,oneof=hadir sakit izin"`
	Remark    *string    `json:"keterangan" binding:"omitempty,max=500"`
}

type analysisRequest struct {
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Role       string `json:"role"`
	ClassGroup string `json:"kelas"`
	Position   string `json:"jabatan"`
}

type ownerResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"nama_lengkap"`
	Role        string `json:"role"`
}

type attendanceResponse struct {
	ID        uint           `json:"id"`
	UserID    uint           `json:"user_id"`
	Date      string         `json:"tanggal"`
	CheckInAt time.Time      `json:"jam_masuk"`
	Status    string         `json:"status"`
	Remark    *string        `json:"keterangan"`
	CreatedAt time.Time      `json:"created_at"`
	User      *ownerResponse `json:"user,omitempty"`
}

func toAttendanceResponse(r model.AttendanceRecord) attendanceResponse {
	out := attendanceResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		Date:      attendance.FormatDay(r.Date),
		CheckInAt: r.CheckInAt,
		Status:    r.Status,
		Remark:    r.Remark,
		CreatedAt: r.CreatedAt,
	}
	if r.User != nil {
		out.User = &ownerResponse{
			ID:          r.User.ID,
			Username:    r.User.Username,
			DisplayName: r.User.DisplayName,
			Role:        r.User.Role,
		}
	}
	return out
}

// CreateAttendance records today's check-in for the authenticated user.
func (h *Handler) CreateAttendance(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		h.fail(c, apperr.Unauthorized("missing credentials"))
		return
	}
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, err.Error())
		return
	}

	in := attendance.CheckIn{CheckInAt: req.CheckInAt, Status: req.Status, Remark: req.Remark}
	if req.Date != nil && *req.Date != "" {
		d, err := attendance.ParseDay(*req.Date, h.loc)
		if err != nil {
			h.badRequest(c, "tanggal: "+err.Error())
			return
		}
		in.Date = &d
	}

	rec, err := h.attendance.Record(c.Request.Context(), claims.UserID, in)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			metrics.AttendanceConflicts.Inc()
		}
		h.fail(c, err)
		return
	}
	metrics.AttendanceRecorded.WithLabelValues(rec.Status).Inc()
	c.JSON(http.StatusCreated, toAttendanceResponse(rec))
}

func (h *Handler) History(c *gin.Context) {
	id, err := parseID(c, "user_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	recs, err := h.attendance.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]attendanceResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toAttendanceResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// Summary returns the monthly summary; year and month query params are optional.
func (h *Handler) Summary(c *gin.Context) {
	id, err := parseID(c, "user_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	year, err := queryInt(c, "year")
	if err != nil {
		h.fail(c, err)
		return
	}
	month, err := queryInt(c, "month")
	if err != nil {
		h.fail(c, err)
		return
	}
	sum, err := h.attendance.MonthlySummary(c.Request.Context(), id, year, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) Analysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	start, err := attendance.ParseDay(req.StartDate, h.loc)
	if err != nil {
		h.badRequest(c, "start_date: "+err.Error())
		return
	}
	end, err := attendance.ParseDay(req.EndDate, h.loc)
	if err != nil {
		h.badRequest(c, "end_date: "+err.Error())
		return
	}
	stats, err := h.attendance.Analysis(c.Request.Context(), attendance.CohortFilter{
		Start:      start,
		End:        end,
		Role:       req.Role,
		ClassGroup: req.ClassGroup,
		Position:   req.Position,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
