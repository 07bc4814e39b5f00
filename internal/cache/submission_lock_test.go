package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore mimics SET NX and the compare-and-delete release script.
type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, held := m.values[key]; held {
		return false, nil
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) DeleteIfValue(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[key] == value {
		delete(m.values, key)
	}
	return nil
}

func TestSubmissionLock_AcquireAndRelease(t *testing.T) {
	store := newMemoryStore()
	lock := NewSubmissionLock(store, time.Minute)
	ctx := context.Background()

	release, ok, err := lock.Acquire(ctx, "PAY-20261016-000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, store.values, "authnet:submit:PAY-20261016-000001")
	assert.Equal(t, time.Minute, store.ttls["authnet:submit:PAY-20261016-000001"])

	_, ok, err = lock.Acquire(ctx, "PAY-20261016-000001")
	require.NoError(t, err)
	assert.False(t, ok, "a held request cannot be submitted twice")

	other, ok, err := lock.Acquire(ctx, "PAY-20261016-000002")
	require.NoError(t, err)
	assert.True(t, ok, "locks are per request")
	other()

	release()
	assert.NotContains(t, store.values, "authnet:submit:PAY-20261016-000001")

	again, ok, err := lock.Acquire(ctx, "PAY-20261016-000001")
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}

func TestSubmissionLock_ReleaseKeepsNewerHolder(t *testing.T) {
	store := newMemoryStore()
	lock := NewSubmissionLock(store, time.Minute)
	ctx := context.Background()

	stale, ok, err := lock.Acquire(ctx, "PAY-20261016-000003")
	require.NoError(t, err)
	require.True(t, ok)

	// The first holder's key expires and a second submission takes over.
	delete(store.values, "authnet:submit:PAY-20261016-000003")
	_, ok, err = lock.Acquire(ctx, "PAY-20261016-000003")
	require.NoError(t, err)
	require.True(t, ok)
	current := store.values["authnet:submit:PAY-20261016-000003"]

	stale()

	assert.Equal(t, current, store.values["authnet:submit:PAY-20261016-000003"])
}

func TestSubmissionLock_StoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("connection refused")
	lock := NewSubmissionLock(store, 0)

	release, ok, err := lock.Acquire(context.Background(), "PAY-20261016-000004")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, ok)
	assert.Nil(t, release)
	assert.Equal(t, 2*time.Minute, lock.ttl)
}
