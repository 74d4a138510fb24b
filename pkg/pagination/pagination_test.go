package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	require.NoError(t, err)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseCursor("not-base64!")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursorIsQuerySafe(t *testing.T) {
	for i := 0; i < 50; i++ {
		token := EncodeCursor(Cursor{CreatedAt: time.Now().Add(time.Duration(i) * time.Second), ID: uuid.New()})
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
	}
}

func TestTrimBuildsNextCursor(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	base := time.Now().UTC()
	rows := []row{{uuid.New(), base}, {uuid.New(), base.Add(-time.Minute)}, {uuid.New(), base.Add(-2 * time.Minute)}}
	page := Trim(rows, 2, func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} })
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	cursor, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, cursor.ID)

	last := Trim(rows[:1], 2, func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} })
	assert.Empty(t, last.NextCursor)
	assert.Len(t, last.Items, 1)
}
