package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestIdempotencyRepository_PostgresCreateGetAndMarkDone(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)

	key := "idem-test-key-done"
	hash := "req-hash-1"
	ttl := time.Now().UTC().Add(24 * time.Hour).Round(time.Second)

	created, err := repo.CreateProcessing(key, hash, ttl)
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, created.Status)

	err = repo.MarkDone(key, []byte(`{"id":"order-1","status":"pending"}`), 201)
	require.NoError(t, err)

	got, err := repo.Get(key)
	require.NoError(t, err)
	require.Equal(t, hash, got.RequestHash)
	require.Equal(t, domain.IdempotencyStatusDone, got.Status)
	require.Equal(t, 201, got.HTTPStatus)
	require.JSONEq(t, `{"id":"order-1","status":"pending"}`, string(got.ResponseBody))
	require.True(t, got.TTLAt.Equal(ttl), "ttl mismatch: expected %s, got %s", ttl, got.TTLAt)
}

func TestIdempotencyRepository_PostgresMarkFailedReplay(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)

	ttl := time.Now().UTC().Add(time.Hour)
	_, err := repo.CreateProcessing("idem-test-key-failed", "req-hash-1", ttl)
	require.NoError(t, err)

	err = repo.MarkFailed("idem-test-key-failed", []byte(`{"error":"cannot place order for an empty cart"}`), 422)
	require.NoError(t, err)

	// Повтор того же ключа отдаёт сохранённую неуспешную запись.
	replay, err := repo.CreateProcessing("idem-test-key-failed", "req-hash-1", ttl)
	require.True(t, errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists))
	require.Equal(t, domain.IdempotencyStatusFailed, replay.Status)
	require.Equal(t, 422, replay.HTTPStatus)
}

func TestIdempotencyRepository_PostgresConflictAndHashMismatch(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)

	ttl := time.Now().UTC().Add(time.Hour)
	_, err := repo.CreateProcessing("idem-test-key-conflict", "req-hash-a", ttl)
	require.NoError(t, err)

	_, err = repo.CreateProcessing("idem-test-key-conflict", "req-hash-a", ttl)
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists))

	_, err = repo.CreateProcessing("idem-test-key-conflict", "req-hash-b", ttl)
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrIdempotencyHashMismatch))
}

func TestIdempotencyRepository_PostgresDeleteExpired(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)

	now := time.Now().UTC()
	_, err := repo.CreateProcessing("idem-expired-1", "h1", now.Add(-5*time.Minute))
	require.NoError(t, err)
	_, err = repo.CreateProcessing("idem-expired-2", "h2", now.Add(-4*time.Minute))
	require.NoError(t, err)
	_, err = repo.CreateProcessing("idem-expired-3", "h3", now.Add(-3*time.Minute))
	require.NoError(t, err)
	_, err = repo.CreateProcessing("idem-active-1", "h4", now.Add(time.Hour))
	require.NoError(t, err)

	expired, err := repo.CountExpired(now)
	require.NoError(t, err)
	require.Equal(t, 3, expired)

	removed, err := repo.DeleteExpired(now, 2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	removed, err = repo.DeleteExpired(now, 10)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	expired, err = repo.CountExpired(now)
	require.NoError(t, err)
	require.Equal(t, 0, expired)

	_, err = repo.Get("idem-active-1")
	require.NoError(t, err)
}
