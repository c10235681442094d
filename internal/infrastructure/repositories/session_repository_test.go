package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/healthsync/healthsync/domain"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(func() {
		mr.Close()
	})

	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func TestSessionRepositoryImpl_Create(t *testing.T) {
	tests := []struct {
		name    string
		session *domain.Session
		ttl     time.Duration
	}{
		{
			name: "successful session creation",
			session: &domain.Session{
				ID:        "session_123",
				UserID:    1,
				Role:      domain.RolePatient,
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(time.Hour),
			},
			ttl: time.Hour,
		},
		{
			name: "session with custom TTL",
			session: &domain.Session{
				ID:        "session_456",
				UserID:    2,
				Role:      domain.RoleReceptionist,
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(30 * time.Minute),
			},
			ttl: 30 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupTestRedis(t)
			repo := NewSessionRepository(client, tt.ttl)

			if err := repo.Create(context.Background(), tt.session); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			key := "session:" + tt.session.ID
			if exists := client.Exists(context.Background(), key).Val(); exists != 1 {
				t.Error("expected session to exist in Redis")
			}

			ttl := client.TTL(context.Background(), key).Val()
			if ttl < tt.ttl-time.Second || ttl > tt.ttl+time.Second {
				t.Errorf("expected TTL around %v, got %v", tt.ttl, ttl)
			}
		})
	}
}

func TestSessionRepositoryImpl_FindByID(t *testing.T) {
	t.Run("round-trips a stored session", func(t *testing.T) {
		client := setupTestRedis(t)
		repo := NewSessionRepository(client, time.Hour)

		session := &domain.Session{
			ID:        "session_123",
			UserID:    7,
			Role:      domain.RolePatient,
			CreatedAt: time.Now().Truncate(time.Second),
			ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second),
		}
		if err := repo.Create(context.Background(), session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		found, err := repo.FindByID(context.Background(), "session_123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found.ID != session.ID || found.UserID != session.UserID || found.Role != session.Role {
			t.Errorf("expected session %+v, got %+v", session, found)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		client := setupTestRedis(t)
		repo := NewSessionRepository(client, time.Hour)

		_, err := repo.FindByID(context.Background(), "nope")
		if err != domain.ErrSessionNotFound {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("expired session is deleted on read", func(t *testing.T) {
		client := setupTestRedis(t)
		repo := NewSessionRepository(client, time.Hour)

		session := &domain.Session{
			ID:        "session_stale",
			UserID:    7,
			Role:      domain.RolePatient,
			CreatedAt: time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		if err := repo.Create(context.Background(), session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := repo.FindByID(context.Background(), "session_stale")
		if err != domain.ErrSessionExpired {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}
		if exists := client.Exists(context.Background(), "session:session_stale").Val(); exists != 0 {
			t.Error("expected expired session to be deleted")
		}
	})
}

func TestSessionRepositoryImpl_Delete(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)

	session := &domain.Session{
		ID:        "session_123",
		UserID:    7,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.Delete(context.Background(), "session_123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindByID(context.Background(), "session_123"); err != domain.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}

	// Deleting a missing session is not an error.
	if err := repo.Delete(context.Background(), "session_123"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
