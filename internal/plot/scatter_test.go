package plot

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"parking-occupancy/internal/dataset"
	"parking-occupancy/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureScatter(t *testing.T) {
	d := &dataset.Dataset{Rows: []dataset.Row{
		{Frame: "a", Slot: 0, Features: features.Vector{200, 10, 20}, Label: 0},
		{Frame: "a", Slot: 1, Features: features.Vector{1500, 40, 90}, Label: 1},
		{Frame: "b", Slot: 0, Features: features.Vector{260, 12, 25}, Label: 0},
	}}
	dir := filepath.Join(t.TempDir(), "plots")

	paths, err := FeatureScatter(d, dir)
	require.NoError(t, err)
	require.Len(t, paths, len(Pairs))

	assert.Equal(t, filepath.Join(dir, "occupied_pixel_count_vs_texture_std.png"), paths[0])
	for _, p := range paths {
		f, err := os.Open(p)
		require.NoError(t, err)
		_, err = png.DecodeConfig(f)
		f.Close()
		assert.NoError(t, err, p)
	}
}

func TestFeatureScatterSingleClass(t *testing.T) {
	d := &dataset.Dataset{Rows: []dataset.Row{
		{Frame: "a", Features: features.Vector{1, 2, 3}, Label: 1},
	}}
	paths, err := FeatureScatter(d, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, paths, 3)
}

func TestFeatureScatterEmpty(t *testing.T) {
	_, err := FeatureScatter(&dataset.Dataset{}, t.TempDir())
	assert.ErrorIs(t, err, ErrNoRows)
}
