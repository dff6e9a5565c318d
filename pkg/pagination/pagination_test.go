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
	want := Cursor{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseCursor("%%%")
	assert.Error(t, err)
}

type row struct {
	id uuid.UUID
	at time.Time
}

func TestPaginate(t *testing.T) {
	base := time.Now().UTC()
	rows := make([]row, 0, 4)
	for i := 0; i < 4; i++ {
		rows = append(rows, row{id: uuid.New(), at: base.Add(-time.Duration(i) * time.Minute)})
	}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := Paginate(rows, 3, cursorOf)
	require.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[2].id, next.ID)

	last := Paginate(rows[:2], 3, cursorOf)
	assert.Len(t, last.Items, 2)
	assert.Empty(t, last.NextCursor)

	none := Paginate[row](nil, 3, cursorOf)
	assert.NotNil(t, none.Items)
}
