package attendance

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"presensi/internal/apperr"
	"presensi/internal/model"
	"presensi/internal/store"
)

var (
	errUserNotFound        = apperr.NotFound("user not found")
	errAlreadyCheckedIn    = apperr.Conflict("already checked in today")
	errDuplicateAttendance = apperr.Conflict("attendance for that day already recorded")
)

// CheckIn carries optional overrides for a new record. Date is a calendar
// day (UTC midnight, see ParseDay).
type CheckIn struct {
	Date      *time.Time
	CheckInAt *time.Time
	Status    string
	Remark    *string
}

// Service records daily attendance and aggregates it per user and cohort.
type Service struct {
	repo  Repository
	users UserLookup
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a service; loc defines calendar-day boundaries.
func NewService(repo Repository, users UserLookup, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, users: users, loc: loc, now: time.Now}
}

// Location is the timezone used for calendar days.
func (s *Service) Location() *time.Location { return s.loc }

// Record creates the user's attendance record for today. A second check-in
// on the same day is a Conflict.
func (s *Service) Record(ctx context.Context, userID uint, in CheckIn) (model.AttendanceRecord, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = model.StatusPresent
	}
	if !model.IsRecordableStatus(status) {
		return model.AttendanceRecord{}, apperr.Invalid("status must be one of hadir, sakit, izin")
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return model.AttendanceRecord{}, err
	}

	now := s.now()
	today := Day(now, s.loc)
	existing, err := s.repo.FindOnDay(ctx, userID, today, today.AddDate(0, 0, 1))
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("find today's attendance: %w", err)
	}
	if existing != nil {
		return model.AttendanceRecord{}, errAlreadyCheckedIn
	}

	rec := model.AttendanceRecord{
		UserID:    userID,
		Date:      today,
		CheckInAt: now.UTC(),
		Status:    status,
		Remark:    in.Remark,
	}
	if in.Date != nil {
		d := *in.Date
		rec.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	if in.CheckInAt != nil {
		rec.CheckInAt = in.CheckInAt.UTC()
	}
	if err := s.repo.Create(ctx, &rec); err != nil {
		if store.IsUniqueViolation(err) {
			return model.AttendanceRecord{}, errDuplicateAttendance.Wrap(err)
		}
		return model.AttendanceRecord{}, fmt.Errorf("create attendance: %w", err)
	}
	return rec, nil
}

// History returns the user's records, latest day first.
func (s *Service) History(ctx context.Context, userID uint) ([]model.AttendanceRecord, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	recs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return recs, nil
}

// MonthlySummary summarizes one calendar month. Zero year or month default
// to the current one in the service's timezone.
func (s *Service) MonthlySummary(ctx context.Context, userID uint, year, month int) (MonthlySummary, error) {
	now := s.now().In(s.loc)
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return MonthlySummary{}, apperr.Invalid("month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return MonthlySummary{}, apperr.Invalid("year out of range")
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return MonthlySummary{}, err
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	recs, err := s.repo.ListByUserBetween(ctx, userID, first, last)
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("list monthly attendance: %w", err)
	}
	sum := Summarize(userID, year, time.Month(month), recs)
	if sum.Absent < 0 {
		log.Printf("attendance integrity: user %d has %d more records than days in %04d-%02d", userID, -sum.Absent, year, month)
	}
	return sum, nil
}

// Analysis computes per-user statistics over [f.Start, f.End], optionally
// narrowed to users matching all of role, kelas and jabatan.
func (s *Service) Analysis(ctx context.Context, f CohortFilter) ([]CohortStat, error) {
	if f.Start.IsZero() || f.End.IsZero() {
		return nil, apperr.Invalid("start_date and end_date are required")
	}
	f.Start = time.Date(f.Start.Year(), f.Start.Month(), f.Start.Day(), 0, 0, 0, 0, time.UTC)
	f.End = time.Date(f.End.Year(), f.End.Month(), f.End.Day(), 0, 0, 0, 0, time.UTC)
	if f.End.Before(f.Start) {
		return nil, apperr.Invalid("end_date must not be before start_date")
	}
	recs, err := s.repo.ListForCohort(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list cohort attendance: %w", err)
	}
	return Analyze(recs, daysBetween(f.Start, f.End)), nil
}

func (s *Service) ensureUser(ctx context.Context, userID uint) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return errUserNotFound
	}
	return nil
}
