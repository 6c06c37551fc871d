package attendance

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"presensi/internal/model"
)

// CohortFilter selects records in [Start, End] (calendar days, inclusive)
// whose owner matches every non-empty attribute.
type CohortFilter struct {
	Start      time.Time
	End        time.Time
	Role       string
	ClassGroup string
	Position   string
}

// Repository persists attendance records. Day arguments are UTC midnights.
type Repository interface {
	// FindOnDay returns the user's record dated in [from, to), or nil.
	FindOnDay(ctx context.Context, userID uint, from, to time.Time) (*model.AttendanceRecord, error)
	// Create inserts rec and loads its owner into rec.User.
	Create(ctx context.Context, rec *model.AttendanceRecord) error
	ListByUser(ctx context.Context, userID uint) ([]model.AttendanceRecord, error)
	ListByUserBetween(ctx context.Context, userID uint, first, last time.Time) ([]model.AttendanceRecord, error)
	ListForCohort(ctx context.Context, f CohortFilter) ([]model.AttendanceRecord, error)
}

// UserLookup resolves user ids; nil, nil means no such user.
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// GormRepository persists attendance data in Postgres through gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repo.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) FindOnDay(ctx context.Context, userID uint, from, to time.Time) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tanggal >= ? AND tanggal < ?", userID, from, to).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepository) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("User").Create(rec).Error; err != nil {
		return err
	}
	return db.Preload("User").First(rec, rec.ID).Error
}

// ListByUser returns the user's records, latest day first.
func (r *GormRepository) ListByUser(ctx context.Context, userID uint) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("tanggal DESC").
		Find(&recs).Error
	return recs, err
}

func (r *GormRepository) ListByUserBetween(ctx context.Context, userID uint, first, last time.Time) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tanggal >= ? AND tanggal <= ?", userID, first, last).
		Order("tanggal ASC").
		Find(&recs).Error
	return recs, err
}

func (r *GormRepository) ListForCohort(ctx context.Context, f CohortFilter) ([]model.AttendanceRecord, error) {
	q := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Joins("JOIN users ON users.id = attendance_records.user_id").
		Where("attendance_records.tanggal >= ? AND attendance_records.tanggal <= ?", f.Start, f.End)
	if f.Role != "" {
		q = q.Where("users.role = ?", f.Role)
	}
	if f.ClassGroup != "" {
		q = q.Where("users.kelas = ?", f.ClassGroup)
	}
	if f.Position != "" {
		q = q.Where("users.jabatan = ?", f.Position)
	}

	var recs []model.AttendanceRecord
	err := q.Preload("User").
		Order("attendance_records.user_id ASC").
		Order("attendance_records.tanggal ASC").
		Find(&recs).Error
	return recs, err
}
