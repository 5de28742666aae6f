package dataset

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"parking-occupancy/internal/config"
	"parking-occupancy/internal/features"
	lotimage "parking-occupancy/internal/image"
	"parking-occupancy/internal/labels"
	"parking-occupancy/pkg/geometry"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pavement = color.NRGBA{R: 120, G: 120, B: 125, A: 255}

// writeFrame writes a 160x80 pavement frame with a "car" in every slot whose
// label is 1.
func writeFrame(t *testing.T, dir, name string, slots []geometry.RectInt, lbls []int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 160, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 160; x++ {
			img.Set(x, y, pavement)
		}
	}
	for i, l := range lbls {
		if l != 1 || i >= len(slots) {
			continue
		}
		s := slots[i]
		for y := s.Y + 5; y < s.Y+s.Height-5; y++ {
			for x := s.X + 5; x < s.X+s.Width-5; x++ {
				c := color.NRGBA{R: 190, G: 30, B: 30, A: 255}
				if (x+y)%7 == 0 {
					c = color.NRGBA{R: 10, G: 10, B: 10, A: 255}
				}
				img.Set(x, y, c)
			}
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newBuilder(t *testing.T, dir string, workers int) *Builder {
	return NewBuilder(logs.NewTestingLog(t), dir, config.DefaultPreprocess(), workers)
}

func threeSlots() []geometry.RectInt {
	return []geometry.RectInt{
		geometry.NewRectInt(5, 10, 40, 60),
		geometry.NewRectInt(55, 10, 40, 60),
		geometry.NewRectInt(105, 10, 40, 60),
	}
}

func TestBuildTwoFrameScenario(t *testing.T) {
	dir := t.TempDir()
	slots := []geometry.RectInt{geometry.NewRectInt(10, 10, 50, 50)}
	ls := labels.LabelSet{
		"2024-01-02.png": {1},
		"2024-01-01.png": {0},
	}
	for name, l := range ls {
		writeFrame(t, dir, name, slots, l)
	}

	d, stats, err := newBuilder(t, dir, 1).Build(context.Background(), slots, ls)
	require.NoError(t, err)

	require.Equal(t, 2, d.Len())
	assert.Equal(t, "2024-01-01.png", d.Rows[0].Frame)
	assert.Equal(t, 0, d.Rows[0].Label)
	assert.Equal(t, "2024-01-02.png", d.Rows[1].Frame)
	assert.Equal(t, 1, d.Rows[1].Label)
	assert.Equal(t, []int{0, 1}, d.Y())
	assert.Equal(t, 2, stats.LoadedFrames)
	assert.Empty(t, stats.MissingFrames)

	x := d.X()
	r, c := x.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, features.NumFeatures, c)
	assert.Equal(t, d.Rows[1].Features[features.SaturationMean], x.At(1, features.SaturationMean))

	// The synthetic car is saturated red, the pavement is not.
	assert.Greater(t, d.Rows[1].Features[features.SaturationMean], d.Rows[0].Features[features.SaturationMean])
}

func TestBuildRowsFollowLabelLength(t *testing.T) {
	dir := t.TempDir()
	slots := threeSlots()
	ls := labels.LabelSet{
		"a.png": {1, 0},
		"b.png": {0, 1, 1},
		"c.png": {},
	}
	for name, l := range ls {
		writeFrame(t, dir, name, slots, l)
	}

	d, stats, err := newBuilder(t, dir, 1).Build(context.Background(), slots, ls)
	require.NoError(t, err)

	require.Equal(t, 5, d.Len())
	want := []struct {
		frame string
		slot  int
	}{{"a.png", 0}, {"a.png", 1}, {"b.png", 0}, {"b.png", 1}, {"b.png", 2}}
	for i, w := range want {
		assert.Equal(t, w.frame, d.Rows[i].Frame, "row %d", i)
		assert.Equal(t, w.slot, d.Rows[i].Slot, "row %d", i)
	}
	assert.Equal(t, 3, stats.LoadedFrames)
	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, []string{"a.png", "b.png"}, d.Frames())
}

func TestBuildSkipsMissingFrames(t *testing.T) {
	dir := t.TempDir()
	slots := threeSlots()
	ls := labels.LabelSet{
		"2024-01-01.png": {0, 1, 0},
		"2024-01-02.png": {1, 1, 1},
	}
	writeFrame(t, dir, "2024-01-01.png", slots, ls["2024-01-01.png"])

	d, stats, err := newBuilder(t, dir, 1).Build(context.Background(), slots, ls)
	require.NoError(t, err)

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"2024-01-02.png"}, stats.MissingFrames)
	assert.Equal(t, 2, stats.LabeledFrames)
	assert.Equal(t, 1, stats.LoadedFrames)
	for _, r := range d.Rows {
		assert.Equal(t, "2024-01-01.png", r.Frame)
	}
}

func TestBuildIgnoresLabelsBeyondLayout(t *testing.T) {
	dir := t.TempDir()
	slots := threeSlots()[:1]
	ls := labels.LabelSet{"a.png": {1, 0, 0}}
	writeFrame(t, dir, "a.png", slots, ls["a.png"])

	d, stats, err := newBuilder(t, dir, 1).Build(context.Background(), slots, ls)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 2, stats.UnmatchedLabels)
}

func TestBuildDeterministicAndParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	slots := threeSlots()
	ls := labels.LabelSet{}
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("2024-03-%02d_0900.png", i+1)
		ls[name] = []int{i % 2, (i / 2) % 2, 1}
		writeFrame(t, dir, name, slots, ls[name])
	}

	seq, _, err := newBuilder(t, dir, 1).Build(context.Background(), slots, ls)
	require.NoError(t, err)
	again, _, err := newBuilder(t, dir, 1).Build(context.Background(), slots, ls)
	require.NoError(t, err)
	par, stats, err := newBuilder(t, dir, 4).Build(context.Background(), slots, ls)
	require.NoError(t, err)

	assert.Equal(t, 36, seq.Len())
	assert.Equal(t, seq.Rows, again.Rows)
	assert.Equal(t, seq.Rows, par.Rows)
	assert.Equal(t, 12, stats.LoadedFrames)
}

func TestBuildReusableBuilder(t *testing.T) {
	dir := t.TempDir()
	slots := threeSlots()
	ls := labels.LabelSet{"a.png": {1, 0, 1}}
	writeFrame(t, dir, "a.png", slots, ls["a.png"])

	b := newBuilder(t, dir, 1)
	first, _, err := b.Build(context.Background(), slots, ls)
	require.NoError(t, err)
	second, _, err := b.Build(context.Background(), slots, ls)
	require.NoError(t, err)
	assert.Equal(t, first.Rows, second.Rows)
}

func TestBuildErrors(t *testing.T) {
	t.Run("slot outside frame", func(t *testing.T) {
		dir := t.TempDir()
		slots := []geometry.RectInt{geometry.NewRectInt(140, 10, 50, 50)}
		ls := labels.LabelSet{"a.png": {0}}
		writeFrame(t, dir, "a.png", nil, nil)

		for _, workers := range []int{1, 3} {
			_, _, err := newBuilder(t, dir, workers).Build(context.Background(), slots, ls)
			assert.ErrorIs(t, err, features.ErrSlotOutOfBounds)
		}
	})

	t.Run("corrupt image", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("garbage"), 0644))
		ls := labels.LabelSet{"a.png": {0}}

		_, _, err := newBuilder(t, dir, 1).Build(context.Background(), threeSlots(), ls)
		assert.ErrorIs(t, err, lotimage.ErrFrameCorrupt)
	})

	t.Run("cancelled", func(t *testing.T) {
		dir := t.TempDir()
		ls := labels.LabelSet{"a.png": {0}}
		writeFrame(t, dir, "a.png", nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := newBuilder(t, dir, 1).Build(ctx, threeSlots(), ls)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDatasetHelpers(t *testing.T) {
	d := &Dataset{Rows: []Row{
		{Frame: "a", Slot: 0, Label: 0},
		{Frame: "a", Slot: 1, Label: 1},
		{Frame: "b", Slot: 0, Label: 1},
	}}
	free, occupied := d.ClassCounts()
	assert.Equal(t, 1, free)
	assert.Equal(t, 2, occupied)

	tail := d.Slice(1, 3)
	assert.Equal(t, 2, tail.Len())
	assert.Equal(t, "a", tail.Rows[0].Frame)
	assert.Panics(t, func() { d.Slice(2, 5) })

	var empty *Dataset
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, (&Dataset{}).X())
}

func TestDatasetSave(t *testing.T) {
	d := &Dataset{Rows: []Row{{Frame: "a.png", Slot: 2, Features: features.Vector{10, 1.5, 30}, Label: 1}}}
	path := filepath.Join(t.TempDir(), "out", "features.json")
	require.NoError(t, d.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"frame":"a.png","slot":2,"features":[10,1.5,30],"label":1}]`, string(data))
}
