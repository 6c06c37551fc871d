package attendance

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"presensi/internal/apperr"
	"presensi/internal/model"
)

// memRepo mirrors the attendance_records table, including the (user_id, tanggal) unique index.
type memRepo struct {
	mu     sync.Mutex
	users  map[uint]*model.User
	recs   []model.AttendanceRecord
	nextID uint
}

func newMemRepo(users ...*model.User) *memRepo {
	m := &memRepo{users: map[uint]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *memRepo) FindOnDay(_ context.Context, userID uint, from, to time.Time) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.UserID == userID && !r.Date.Before(from) && r.Date.Before(to) {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memRepo) Create(_ context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.UserID == rec.UserID && r.Date.Equal(rec.Date) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_attendance_user_date"}
		}
	}
	m.nextID++
	rec.ID = m.nextID
	rec.User = m.users[rec.UserID]
	m.recs = append(m.recs, *rec)
	return nil
}

func (m *memRepo) ListByUser(_ context.Context, userID uint) ([]model.AttendanceRecord, error) {
	out := m.filter(func(r model.AttendanceRecord) bool { return r.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memRepo) ListByUserBetween(_ context.Context, userID uint, first, last time.Time) ([]model.AttendanceRecord, error) {
	return m.filter(func(r model.AttendanceRecord) bool {
		return r.UserID == userID && !r.Date.Before(first) && !r.Date.After(last)
	}), nil
}

func (m *memRepo) ListForCohort(_ context.Context, f CohortFilter) ([]model.AttendanceRecord, error) {
	return m.filter(func(r model.AttendanceRecord) bool {
		if r.Date.Before(f.Start) || r.Date.After(f.End) {
			return false
		}
		u := m.users[r.UserID]
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if f.ClassGroup != "" && (u.ClassGroup == nil || *u.ClassGroup != f.ClassGroup) {
			return false
		}
		if f.Position != "" && (u.Position == nil || *u.Position != f.Position) {
			return false
		}
		return true
	}), nil
}

func (m *memRepo) filter(keep func(model.AttendanceRecord) bool) []model.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, r := range m.recs {
		if keep(r) {
			r.User = m.users[r.UserID]
			out = append(out, r)
		}
	}
	return out
}

func (m *memRepo) seed(userID uint, day time.Time, status string) {
	m.nextID++
	m.recs = append(m.recs, model.AttendanceRecord{ID: m.nextID, UserID: userID, Date: day, CheckInAt: day.Add(7 * time.Hour), Status: status})
}

var wib = time.FixedZone("WIB", 7*3600)

func strp(s string) *string { return &s }

func newTestService(at time.Time, users ...*model.User) (*Service, *memRepo) {
	repo := newMemRepo(users...)
	svc := NewService(repo, repo, wib)
	svc.now = func() time.Time { return at }
	return svc, repo
}

func TestRecordDefaults(t *testing.T) {
	now := time.Date(2024, 2, 29, 0, 30, 0, 0, wib)
	svc, _ := newTestService(now, &model.User{ID: 1, Username: "budi", DisplayName: "Budi", Role: model.RoleStudent})

	rec, err := svc.Record(context.Background(), 1, CheckIn{})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if FormatDay(rec.Date) != "2024-02-29" {
		t.Fatalf("date = %s, want the WIB calendar day", FormatDay(rec.Date))
	}
	if !rec.CheckInAt.Equal(now) {
		t.Fatalf("check-in = %s, want %s", rec.CheckInAt, now)
	}
	if rec.Status != model.StatusPresent {
		t.Fatalf("status = %q", rec.Status)
	}
	if rec.User == nil || rec.User.Username != "budi" {
		t.Fatalf("owner not joined: %+v", rec.User)
	}
}

func TestRecordSecondCheckInSameDayConflicts(t *testing.T) {
	now := time.Date(2024, 3, 4, 7, 0, 0, 0, wib)
	svc, _ := newTestService(now, &model.User{ID: 1}, &model.User{ID: 2})
	ctx := context.Background()

	if _, err := svc.Record(ctx, 1, CheckIn{Status: model.StatusSick, Remark: strp("demam")}); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	_, err := svc.Record(ctx, 1, CheckIn{})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("second Record err = %v, want conflict", err)
	}
	if _, err := svc.Record(ctx, 2, CheckIn{}); err != nil {
		t.Fatalf("other user Record: %v", err)
	}

	svc.now = func() time.Time { return now.Add(24 * time.Hour) }
	if _, err := svc.Record(ctx, 1, CheckIn{}); err != nil {
		t.Fatalf("next day Record: %v", err)
	}
}

func TestRecordExplicitDateHitsUniqueIndex(t *testing.T) {
	now := time.Date(2024, 3, 4, 7, 0, 0, 0, wib)
	svc, repo := newTestService(now, &model.User{ID: 1})
	repo.seed(1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), model.StatusPresent)

	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Record(context.Background(), 1, CheckIn{Date: &d})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestRecordRejects(t *testing.T) {
	svc, _ := newTestService(time.Now(), &model.User{ID: 1})
	ctx := context.Background()

	for _, status := range []string{"alpha", "telat"} {
		_, err := svc.Record(ctx, 1, CheckIn{Status: status})
		if apperr.KindOf(err) != apperr.KindInvalid {
			t.Fatalf("status %q err = %v, want invalid", status, err)
		}
	}
	if _, err := svc.Record(ctx, 99, CheckIn{}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown user err = %v, want not found", err)
	}
}

func TestHistory(t *testing.T) {
	svc, repo := newTestService(time.Now(), &model.User{ID: 1, Username: "budi"}, &model.User{ID: 2})
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	repo.seed(1, day(3), model.StatusPresent)
	repo.seed(1, day(10), model.StatusSick)
	repo.seed(2, day(5), model.StatusPresent)
	repo.seed(1, day(7), model.StatusExcused)

	recs, err := svc.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	for i, want := range []int{10, 7, 3} {
		if recs[i].Date.Day() != want {
			t.Fatalf("recs[%d] day = %d, want %d", i, recs[i].Date.Day(), want)
		}
		if recs[i].User == nil || recs[i].User.Username != "budi" {
			t.Fatalf("recs[%d] owner not joined", i)
		}
	}

	if _, err := svc.History(context.Background(), 42); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestMonthlySummary(t *testing.T) {
	now := time.Date(2024, 2, 15, 9, 0, 0, 0, wib)
	svc, repo := newTestService(now, &model.User{ID: 1})
	for d := 1; d <= 10; d++ {
		repo.seed(1, time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC), model.StatusPresent)
	}
	repo.seed(1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), model.StatusSick)
	repo.seed(1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), model.StatusPresent)
	repo.seed(1, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), model.StatusPresent)
	ctx := context.Background()

	sum, err := svc.MonthlySummary(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("MonthlySummary: %v", err)
	}
	if sum.Year != 2024 || sum.Month != 2 || sum.TotalDays != 29 {
		t.Fatalf("period = %d-%d (%d days)", sum.Year, sum.Month, sum.TotalDays)
	}
	if sum.Present != 10 || sum.Sick != 1 || sum.Excused != 0 || sum.Absent != 18 {
		t.Fatalf("counts = %+v", sum)
	}
	if sum.AttendancePercentage != "34.48%" {
		t.Fatalf("percentage = %q", sum.AttendancePercentage)
	}

	feb23, err := svc.MonthlySummary(ctx, 1, 2023, 2)
	if err != nil {
		t.Fatalf("MonthlySummary 2023-02: %v", err)
	}
	if feb23.TotalDays != 28 || feb23.Absent != 28 {
		t.Fatalf("2023-02 = %+v", feb23)
	}

	if _, err := svc.MonthlySummary(ctx, 1, 2024, 13); apperr.KindOf(err) != apperr.KindInvalid {
		t.Fatalf("month 13 err = %v, want invalid", err)
	}
	if _, err := svc.MonthlySummary(ctx, 7, 2024, 2); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown user err = %v, want not found", err)
	}
}

func TestAnalysis(t *testing.T) {
	x1, x2 := "X-1", "X-2"
	wali := "Wali Kelas"
	users := []*model.User{
		{ID: 1, DisplayName: "A", Role: model.RoleStudent, ClassGroup: &x1},
		{ID: 2, DisplayName: "B", Role: model.RoleStudent, ClassGroup: &x2},
		{ID: 3, DisplayName: "C", Role: model.RoleTeacher, Position: &wali},
	}
	svc, repo := newTestService(time.Now(), users...)
	day := func(d int) time.Time { return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC) }
	repo.seed(3, day(1), model.StatusPresent)
	repo.seed(1, day(1), model.StatusPresent)
	repo.seed(1, day(2), model.StatusSick)
	repo.seed(2, day(2), model.StatusPresent)
	repo.seed(2, day(9), model.StatusPresent)
	ctx := context.Background()

	stats, err := svc.Analysis(ctx, CohortFilter{Start: day(1), End: day(5)})
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("len = %d, want 3", len(stats))
	}
	for i, id := range []uint{1, 2, 3} {
		if stats[i].User.ID != id {
			t.Fatalf("stats[%d] user = %d, want %d", i, stats[i].User.ID, id)
		}
	}
	if stats[0].Total != 2 || stats[0].Present != 1 || stats[0].Sick != 1 || stats[0].Absent != 3 {
		t.Fatalf("user 1 = %+v", stats[0])
	}
	if stats[1].Total != 1 || stats[1].AttendancePercentage != "100.00%" {
		t.Fatalf("user 2 = %+v (record outside range leaked?)", stats[1])
	}

	students, err := svc.Analysis(ctx, CohortFilter{Start: day(1), End: day(30), Role: model.RoleStudent, ClassGroup: "X-2"})
	if err != nil {
		t.Fatalf("Analysis filtered: %v", err)
	}
	if len(students) != 1 || students[0].User.ID != 2 || students[0].Total != 2 {
		t.Fatalf("filtered = %+v", students)
	}

	teachers, err := svc.Analysis(ctx, CohortFilter{Start: day(1), End: day(30), Role: model.RoleTeacher, Position: "Wali Kelas"})
	if err != nil {
		t.Fatalf("Analysis teachers: %v", err)
	}
	if len(teachers) != 1 || teachers[0].User.ID != 3 || teachers[0].Absent != 29 {
		t.Fatalf("teachers = %+v", teachers)
	}

	if _, err := svc.Analysis(ctx, CohortFilter{Start: day(5), End: day(1)}); apperr.KindOf(err) != apperr.KindInvalid {
		t.Fatalf("reversed range err = %v, want invalid", err)
	}
	if _, err := svc.Analysis(ctx, CohortFilter{End: day(1)}); apperr.KindOf(err) != apperr.KindInvalid {
		t.Fatalf("missing start err = %v, want invalid", err)
	}
}
