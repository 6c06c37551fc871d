package model

import "time"

// Roles.
const (
	RoleStudent = "siswa"
	RoleTeacher = "guru"
	RoleAdmin   = "admin"
)

// Recorded attendance statuses. Alpha (unexcused absence) is derived, never stored.
const (
	StatusPresent = "hadir"
	StatusSick    = "sakit"
	StatusExcused = "izin"
	StatusAbsent  = "alpha"
)

// IsRecordableStatus reports whether status may be stored on a record.
func IsRecordableStatus(status string) bool {
	switch status {
	case StatusPresent, StatusSick, StatusExcused:
		return true
	}
	return false
}

// User is an account that can check in and be aggregated into cohorts.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:60;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password;not null"`
	DisplayName  string    `json:"nama_lengkap" gorm:"column:nama_lengkap;size:120;not null"`
	Role         string    `json:"role" gorm:"size:20;not null;default:siswa"`
	ClassGroup   *string   `json:"kelas,omitempty" gorm:"column:kelas;size:40;index"`
	Position     *string   `json:"jabatan,omitempty" gorm:"column:jabatan;size:60;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AttendanceRecord is one check-in for one user on one calendar day.
// Date holds the calendar day as UTC midnight.
type AttendanceRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_attendance_user_date,priority:1"`
	User      *User     `json:"user,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Date      time.Time `json:"tanggal" gorm:"column:tanggal;type:date;not null;uniqueIndex:idx_attendance_user_date,priority:2;index"`
	CheckInAt time.Time `json:"jam_masuk" gorm:"column:jam_masuk;not null"`
	Status    string    `json:"status" gorm:"size:10;not null;default:hadir;index"`
	Remark    *string   `json:"keterangan,omitempty" gorm:"column:keterangan;type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (AttendanceRecord) TableName() string { return "attendance_records" }
