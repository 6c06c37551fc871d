package attendance

import (
	"fmt"
	"sort"
	"time"

	"presensi/internal/model"
)

// MonthlySummary is one user's attendance over a calendar month.
type MonthlySummary struct {
	UserID               uint   `json:"user_id"`
	Month                int    `json:"bulan"`
	Year                 int    `json:"tahun"`
	TotalDays            int    `json:"total_hari"`
	Present              int    `json:"hadir"`
	Sick                 int    `json:"sakit"`
	Excused              int    `json:"izin"`
	Absent               int    `json:"alpha"`
	AttendancePercentage string `json:"persentase_kehadiran"`
}

// CohortUser is the projection of a user shown in cohort analysis.
type CohortUser struct {
	ID          uint    `json:"id"`
	DisplayName string  `json:"nama_lengkap"`
	Role        string  `json:"role"`
	ClassGroup  *string `json:"kelas"`
	Position    *string `json:"jabatan"`
}

// CohortStat is one user's attendance over an analysis range.
type CohortStat struct {
	User                 CohortUser `json:"user"`
	Total                int        `json:"total"`
	Present              int        `json:"hadir"`
	Sick                 int        `json:"sakit"`
	Excused              int        `json:"izin"`
	Absent               int        `json:"alpha"`
	AttendancePercentage string     `json:"persentase_kehadiran"`
}

type statusCounts struct {
	present, sick, excused int
}

func (c *statusCounts) add(status string) {
	switch status {
	case model.StatusPresent:
		c.present++
	case model.StatusSick:
		c.sick++
	case model.StatusExcused:
		c.excused++
	}
}

func (c statusCounts) known() int { return c.present + c.sick + c.excused }

// Percentage renders n/d*100 with two decimals and a % suffix; a zero d gives "0.00%".
func Percentage(n, d int) string {
	if d <= 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(d)*100)
}

// Summarize builds the monthly summary from the records falling in that month.
// Alpha is every day of the month without a hadir, sakit or izin record; a
// negative value means the record set holds more than one record per day.
func Summarize(userID uint, year int, month time.Month, records []model.AttendanceRecord) MonthlySummary {
	total := DaysInMonth(year, month)
	var c statusCounts
	for _, r := range records {
		c.add(r.Status)
	}
	return MonthlySummary{
		UserID:               userID,
		Month:                int(month),
		Year:                 year,
		TotalDays:            total,
		Present:              c.present,
		Sick:                 c.sick,
		Excused:              c.excused,
		Absent:               total - c.known(),
		AttendancePercentage: Percentage(c.present, total),
	}
}

// Analyze groups records by owner. Alpha uses the same missing-day rule as
// Summarize over rangeDays; the percentage is hadir over the user's records.
// Output is ordered by user id.
func Analyze(records []model.AttendanceRecord, rangeDays int) []CohortStat {
	type group struct {
		user  CohortUser
		total int
		c     statusCounts
	}
	groups := map[uint]*group{}
	for _, r := range records {
		g, ok := groups[r.UserID]
		if !ok {
			g = &group{user: CohortUser{ID: r.UserID}}
			if r.User != nil {
				g.user = CohortUser{
					ID:          r.User.ID,
					DisplayName: r.User.DisplayName,
					Role:        r.User.Role,
					ClassGroup:  r.User.ClassGroup,
					Position:    r.User.Position,
				}
			}
			groups[r.UserID] = g
		}
		g.total++
		g.c.add(r.Status)
	}

	out := make([]CohortStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, CohortStat{
			User:                 g.user,
			Total:                g.total,
			Present:              g.c.present,
			Sick:                 g.c.sick,
			Excused:              g.c.excused,
			Absent:               rangeDays - g.c.known(),
			AttendancePercentage: Percentage(g.c.present, g.total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out
}
