package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := &Entry{
		CreatedAt:  base,
		Recipients: []string{"6281234567890"},
		Caption:    "Hi",
		FrameID:    "frame1",
		MimeType:   "image/jpeg",
		Size:       1234,
		Success:    true,
		MessageIDs: []string{"m1"},
	}
	require.NoError(t, s.Record(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &Entry{
		CreatedAt:  base.Add(time.Minute),
		Recipients: []string{"6289876543210", "6281111111111"},
		MimeType:   "image/png",
		Size:       99,
		Error:      "gateway not connected",
	}
	require.NoError(t, s.Record(ctx, second))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, second.ID, got[0].ID, "newest first")
	assert.False(t, got[0].Success)
	assert.Equal(t, "gateway not connected", got[0].Error)
	assert.Empty(t, got[0].MessageIDs)
	assert.Len(t, got[0].Recipients, 2)

	assert.Equal(t, first.ID, got[1].ID)
	assert.True(t, got[1].Success)
	assert.Equal(t, []string{"m1"}, got[1].MessageIDs)
	assert.Equal(t, "frame1", got[1].FrameID)
	assert.True(t, base.Equal(got[1].CreatedAt))

	total, ok, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, ok)
}

func TestRecentLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, &Entry{MimeType: "image/jpeg", Success: true}))
	}

	got, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestPrune(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Record(ctx, &Entry{CreatedAt: now.Add(-48 * time.Hour), MimeType: "image/jpeg"}))
	require.NoError(t, s.Record(ctx, &Entry{CreatedAt: now, MimeType: "image/jpeg"}))

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	total, _, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(context.Background(), &Entry{MimeType: "image/jpeg"}))
	got, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestClosed(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Record(context.Background(), &Entry{}), ErrClosed)
	_, err := s.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}
