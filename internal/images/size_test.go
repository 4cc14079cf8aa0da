package images

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize_UnmarshalJSON(t *testing.T) {
	var sizes []Size
	err := json.Unmarshal([]byte(`[192, "640x360", {"width": 800, "height": 600}, "1024"]`), &sizes)
	require.NoError(t, err)
	assert.Equal(t, []Size{{192, 0}, {640, 360}, {800, 600}, {1024, 0}}, sizes)

	var s Size
	assert.Error(t, json.Unmarshal([]byte(`"wide"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`-5`), &s))
}

func TestSize_FitWithin(t *testing.T) {
	tests := []struct {
		name string
		size Size
		box  Size
		want Size
	}{
		{"width bound", Size{2000, 1000}, Size{Width: 960}, Size{960, 480}},
		{"both bounds", Size{2000, 1000}, Size{1920, 1920}, Size{1920, 960}},
		{"height bound", Size{1000, 2000}, Size{1920, 1000}, Size{500, 1000}},
		{"no upscale", Size{100, 50}, Size{400, 400}, Size{100, 50}},
		{"unbounded", Size{100, 50}, Size{}, Size{100, 50}},
		{"rounds to one pixel", Size{4000, 1}, Size{Width: 100}, Size{100, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.size.FitWithin(tt.box))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("JPG")
	assert.True(t, ok)
	assert.Equal(t, JPEG, f)

	_, ok = ParseFormat("bmp")
	assert.False(t, ok)

	f, ok = FormatForExt(".webp")
	assert.True(t, ok)
	assert.Equal(t, WebP, f)

	assert.Equal(t, []string{"avif", "jpeg", "jxl", "png", "webp"}, FormatNames())
}
