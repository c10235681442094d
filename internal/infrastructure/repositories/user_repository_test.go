package repositories

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/healthsync/healthsync/domain"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&DBUser{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *DBUser {
	t.Helper()
	user := &DBUser{
		Name:          "Jane Doe",
		Email:         "jane@example.com",
		Phone:         "+919876543210",
		PasswordHash:  "hashed_password",
		Role:          domain.RolePatient,
		IsActive:      true,
		EmailVerified: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestUserRepositoryImpl_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	user := &domain.User{
		Name:          "Jane Doe",
		Email:         "jane@example.com",
		Phone:         "+919876543210",
		PasswordHash:  "hashed_password",
		Role:          domain.RolePatient,
		Gender:        "female",
		DateOfBirth:   "1990-03-12",
		IsActive:      true,
		EmailVerified: true,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected the generated ID to be back-filled")
	}

	var stored DBUser
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("failed to read back user: %v", err)
	}
	if stored.Email != "jane@example.com" || stored.PasswordHash != "hashed_password" {
		t.Errorf("stored user mismatch: %+v", stored)
	}
	if stored.LocationCaptured {
		t.Error("new user must not be marked location-captured")
	}
}

func TestUserRepositoryImpl_CreateDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seedUser(t, db)

	err := repo.Create(context.Background(), &domain.User{
		Name:  "Other",
		Email: "jane@example.com",
	})
	if err == nil {
		t.Error("expected unique index violation for duplicate email")
	}
}

func TestUserRepositoryImpl_FindByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seeded := seedUser(t, db)

	t.Run("existing user", func(t *testing.T) {
		user, err := repo.FindByEmail(context.Background(), "jane@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != seeded.ID || user.Email != seeded.Email || user.Role != seeded.Role {
			t.Errorf("expected seeded user, got %+v", user)
		}
		if user.Location != nil {
			t.Error("expected no location record before capture")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
		if err != domain.ErrUserNotFound {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserRepositoryImpl_FindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seeded := seedUser(t, db)

	user, err := repo.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "jane@example.com" {
		t.Errorf("expected seeded user, got %+v", user)
	}

	if _, err := repo.FindByID(context.Background(), 9999); err != domain.ErrUserNotFound {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryImpl_UpdatePassword(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seeded := seedUser(t, db)

	if err := repo.UpdatePassword(context.Background(), seeded.ID, "hashed_new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := repo.FindByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.PasswordHash != "hashed_new" {
		t.Errorf("expected updated hash, got %q", user.PasswordHash)
	}
}

func TestUserRepositoryImpl_UpdateLocation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seeded := seedUser(t, db)

	lat, lng := 18.5204, 73.8567
	loc := &domain.LocationRecord{
		Source:    domain.LocationSourceGPS,
		Latitude:  &lat,
		Longitude: &lng,
		City:      "Pune",
		State:     "Maharashtra",
		Country:   "India",
		Pincode:   "411001",
	}
	if err := repo.UpdateLocation(context.Background(), seeded.ID, loc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := repo.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.LocationCaptured {
		t.Error("expected location-captured flag to be set")
	}
	if user.Location == nil {
		t.Fatal("expected a location record")
	}
	if user.Location.City != "Pune" || user.Location.Source != domain.LocationSourceGPS {
		t.Errorf("location mismatch: %+v", user.Location)
	}
	if user.Location.Latitude == nil || *user.Location.Latitude != lat {
		t.Errorf("expected latitude %v, got %v", lat, user.Location.Latitude)
	}
}
