package lockmgr

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SameSessionIsIdempotent(t *testing.T) {
	m := New()
	key := Key{Kind: workitem.KindTask, ID: uuid.New()}

	_, err := m.Acquire(key, "session-a", time.Minute)
	require.NoError(t, err)

	lock2, err := m.Acquire(key, "session-a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "session-a", lock2.Session)
}

func TestAcquire_OtherSessionConflicts(t *testing.T) {
	m := New()
	key := Key{Kind: workitem.KindTask, ID: uuid.New()}

	_, err := m.Acquire(key, "session-a", time.Minute)
	require.NoError(t, err)

	_, err = m.Acquire(key, "session-b", time.Minute)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindLockConflict))
}

func TestAcquire_ExpiredLockIsReclaimed(t *testing.T) {
	m := New()
	fakeNow := time.Now()
	m.now = func() time.Time { return fakeNow }
	key := Key{Kind: workitem.KindTask, ID: uuid.New()}

	_, err := m.Acquire(key, "session-a", time.Second)
	require.NoError(t, err)

	fakeNow = fakeNow.Add(2 * time.Second)
	_, err = m.Acquire(key, "session-b", time.Minute)
	require.NoError(t, err)
}

func TestAcquireMany_CanonicalOrderAvoidsPartialDeadlock(t *testing.T) {
	m := New()
	taskID := uuid.New()
	featureID := uuid.New()

	locks, err := m.AcquireMany([]Key{
		{Kind: workitem.KindTask, ID: taskID},
		{Kind: workitem.KindFeature, ID: featureID},
	}, "session-a", time.Minute)
	require.NoError(t, err)
	require.Len(t, locks, 2)
	assert.Equal(t, workitem.KindFeature, locks[0].Key.Kind)
	assert.Equal(t, workitem.KindTask, locks[1].Key.Kind)
}

func TestAcquireMany_FailureReleasesPriorAcquisitions(t *testing.T) {
	m := New()
	taskID := uuid.New()
	featureID := uuid.New()

	_, err := m.Acquire(Key{Kind: workitem.KindTask, ID: taskID}, "other", time.Minute)
	require.NoError(t, err)

	_, err = m.AcquireMany([]Key{
		{Kind: workitem.KindFeature, ID: featureID},
		{Kind: workitem.KindTask, ID: taskID},
	}, "session-a", time.Minute)
	require.Error(t, err)

	_, err = m.Acquire(Key{Kind: workitem.KindFeature, ID: featureID}, "session-b", time.Minute)
	require.NoError(t, err, "feature lock should have been released after the batch failed")
}

func TestRenew(t *testing.T) {
	m := New()
	key := Key{Kind: workitem.KindTask, ID: uuid.New()}
	lock, err := m.Acquire(key, "session-a", time.Minute)
	require.NoError(t, err)

	renewed, result := m.Renew(lock, time.Minute)
	assert.Equal(t, Renewed, result)
	assert.True(t, renewed.ExpiresAt.After(lock.ExpiresAt) || renewed.ExpiresAt.Equal(lock.ExpiresAt))
}

func TestRenew_WrongSessionExpires(t *testing.T) {
	m := New()
	key := Key{Kind: workitem.KindTask, ID: uuid.New()}
	lock, err := m.Acquire(key, "session-a", time.Minute)
	require.NoError(t, err)

	_, result := m.Renew(Lock{Key: key, Session: "session-b"}, time.Minute)
	assert.Equal(t, Expired, result)
	_ = lock
}

func TestRelease_IsNoOpIfAlreadyExpiredOrTakenOver(t *testing.T) {
	m := New()
	key := Key{Kind: workitem.KindTask, ID: uuid.New()}
	lock, err := m.Acquire(key, "session-a", time.Minute)
	require.NoError(t, err)

	m.Release(lock)
	m.Release(lock) // second release is a no-op, must not panic

	_, err = m.Acquire(key, "session-b", time.Minute)
	require.NoError(t, err)

	m.Release(lock) // stale session-a handle: session-b now holds the key, so this is a no-op
	_, err = m.Acquire(key, "session-c", time.Minute)
	require.Error(t, err, "session-b's lock must survive a release through session-a's stale handle")
	assert.True(t, apierr.Is(err, apierr.KindLockConflict))
}
