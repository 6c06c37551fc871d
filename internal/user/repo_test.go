package user

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"presensi/internal/model"
	"presensi/internal/store"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := (&store.DB{Gorm: gdb}).Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestGormRepository(t *testing.T) {
	repo := NewGormRepository(openTestDB(t))
	ctx := context.Background()
	at := func(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC) }
	kelas := "X-1"

	for _, u := range []*model.User{
		{Username: "budi", PasswordHash: "h1", DisplayName: "Budi", Role: model.RoleStudent, ClassGroup: &kelas, CreatedAt: at(8)},
		{Username: "sari", PasswordHash: "h2", DisplayName: "Sari", Role: model.RoleStudent, CreatedAt: at(9)},
		{Username: "agus", PasswordHash: "h3", DisplayName: "Agus", Role: model.RoleTeacher, CreatedAt: at(9)},
	} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Create %s: %v", u.Username, err)
		}
	}

	t.Run("duplicate username rejected", func(t *testing.T) {
		if err := repo.Create(ctx, &model.User{Username: "budi", PasswordHash: "x", DisplayName: "Lain"}); err == nil {
			t.Fatal("duplicate username stored")
		}
	})

	t.Run("list newest first, id breaks ties", func(t *testing.T) {
		users, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var names []string
		for _, u := range users {
			names = append(names, u.Username)
		}
		if len(names) != 3 || names[0] != "agus" || names[1] != "sari" || names[2] != "budi" {
			t.Fatalf("order = %v", names)
		}
	})

	t.Run("finders return nil for missing rows", func(t *testing.T) {
		if u, err := repo.FindByUsername(ctx, "nobody"); err != nil || u != nil {
			t.Fatalf("FindByUsername = %v, %v", u, err)
		}
		if u, err := repo.FindByID(ctx, 999); err != nil || u != nil {
			t.Fatalf("FindByID = %v, %v", u, err)
		}
		u, err := repo.FindByUsername(ctx, "budi")
		if err != nil || u == nil || u.PasswordHash != "h1" || u.ClassGroup == nil || *u.ClassGroup != "X-1" {
			t.Fatalf("FindByUsername(budi) = %+v, %v", u, err)
		}
	})

	t.Run("update writes only given columns", func(t *testing.T) {
		budi, _ := repo.FindByUsername(ctx, "budi")
		var clear *string
		updated, err := repo.Update(ctx, budi.ID, map[string]any{"nama_lengkap": "Budi Santoso", "kelas": clear})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.DisplayName != "Budi Santoso" || updated.ClassGroup != nil {
			t.Fatalf("updated = %+v", updated)
		}
		if updated.Username != "budi" || updated.PasswordHash != "h1" || updated.Role != model.RoleStudent {
			t.Fatalf("untouched columns changed: %+v", updated)
		}
	})

	t.Run("rename onto a taken username fails", func(t *testing.T) {
		sari, _ := repo.FindByUsername(ctx, "sari")
		if _, err := repo.Update(ctx, sari.ID, map[string]any{"username": "agus"}); err == nil {
			t.Fatal("rename onto taken username succeeded")
		}
	})
}
