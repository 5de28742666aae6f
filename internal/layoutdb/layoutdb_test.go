package layoutdb

import (
	"path/filepath"
	"testing"

	"parking-occupancy/internal/labels"
	"parking-occupancy/internal/roi"
	"parking-occupancy/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "layouts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// The DB satisfies the stores the training command reads from.
var (
	_ roi.Store    = (*DB)(nil)
	_ labels.Store = (*DB)(nil)
)

func TestLayoutRoundTrip(t *testing.T) {
	db := openTestDB(t)
	slots := []geometry.RectInt{
		geometry.NewRectInt(300, 20, 40, 80),
		geometry.NewRectInt(10, 20, 40, 80),
		geometry.NewRectInt(150, 200, 45, 90),
	}
	require.NoError(t, db.PutLayout("north", slots))

	l, err := db.Layout("north")
	require.NoError(t, err)
	assert.Equal(t, "north", l.Name)
	assert.Equal(t, slots, l.Slots)

	// Replacing drops slots that are no longer present.
	require.NoError(t, db.PutLayout("north", slots[:1]))
	l, err = db.Layout("north")
	require.NoError(t, err)
	assert.Equal(t, slots[:1], l.Slots)

	require.NoError(t, db.PutLayout("east", slots))
	names, err := db.Layouts()
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "north"}, names)
}

func TestLayoutErrors(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Layout("absent")
	assert.ErrorIs(t, err, ErrLayoutNotFound)
	assert.ErrorIs(t, err, roi.ErrMissing)

	assert.ErrorIs(t, db.PutLayout("empty", nil), roi.ErrEmpty)
	assert.Error(t, db.PutLayout("bad", []geometry.RectInt{geometry.NewRectInt(0, 0, 0, 10)}))
}

func TestLabelRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ls := labels.LabelSet{
		"2024-01-02.png": {1, 0, 1},
		"2024-01-01.png": {0, 0},
	}
	require.NoError(t, db.PutLabelSet("north", ls))
	require.NoError(t, db.PutLabels("east", "2024-01-01.png", []int{1}))

	got, err := db.LabelSet("north")
	require.NoError(t, err)
	assert.Equal(t, ls, got)

	require.NoError(t, db.PutLabels("north", "2024-01-02.png", []int{0}))
	got, err = db.LabelSet("north")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got["2024-01-02.png"])
	assert.Equal(t, []int{0, 0}, got["2024-01-01.png"])
}

func TestLabelErrors(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LabelSet("absent")
	assert.ErrorIs(t, err, labels.ErrMissing)

	assert.ErrorIs(t, db.PutLabels("north", "a.png", []int{0, 2}), labels.ErrInvalidLabel)
	assert.ErrorIs(t, db.PutLabelSet("north", labels.LabelSet{"a.png": {3}}), labels.ErrInvalidLabel)

	_, err = db.LabelSet("north")
	assert.ErrorIs(t, err, labels.ErrMissing)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.PutLayout("north", []geometry.RectInt{geometry.NewRectInt(1, 2, 3, 4)}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	l, err := db.Layout("north")
	require.NoError(t, err)
	assert.Equal(t, []geometry.RectInt{geometry.NewRectInt(1, 2, 3, 4)}, l.Slots)
}
