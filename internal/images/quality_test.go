package images

import (
	"context"
	"errors"
	"image"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearch encodes the parameter as text and maps it to a fixed
// similarity table, so tests control the probe curve exactly.
func fakeSearch(similarity map[int]float64) (Search, *[]int) {
	var encoded []int
	ref := image.NewGray(image.Rect(0, 0, 1, 1))
	return Search{
		Encode: func(_ context.Context, param int, lossless bool) ([]byte, error) {
			encoded = append(encoded, param)
			if lossless {
				return []byte("lossless"), nil
			}
			return []byte(strconv.Itoa(param)), nil
		},
		Decode: func(data []byte) (image.Image, error) {
			p, err := strconv.Atoi(string(data))
			if err != nil {
				return nil, err
			}
			img := image.NewGray(image.Rect(0, 0, 1, 1))
			img.Pix[0] = uint8(p)
			return img, nil
		},
		Similarity: func(_, b image.Image) float64 {
			return similarity[int(b.(*image.Gray).Pix[0])]
		},
		Reference: ref,
	}, &encoded
}

func TestFindQuality_MonotonicityGuard(t *testing.T) {
	s, _ := fakeSearch(map[int]float64{60: 0.90, 90: 0.85})
	spec := Formats[WebP]

	q, err := FindQuality(context.Background(), s, 0.8, spec)
	require.NoError(t, err)
	assert.Equal(t, spec.Range.Max, q.Param)
	assert.True(t, q.Lossless)
	assert.True(t, q.Guarded)
}

func TestFindQuality_GuardWithoutLosslessMode(t *testing.T) {
	s, _ := fakeSearch(map[int]float64{60: 0.95, 90: 0.95})
	spec := Formats[JPEG]

	q, err := FindQuality(context.Background(), s, 0.9, spec)
	require.NoError(t, err)
	assert.Equal(t, 100, q.Param)
	assert.False(t, q.Lossless, "jpeg has no lossless mode")
}

func TestFindQuality_Interpolates(t *testing.T) {
	s, _ := fakeSearch(map[int]float64{60: 0.80, 90: 0.95})
	spec := Formats[WebP]

	q, err := FindQuality(context.Background(), s, 0.90, spec)
	require.NoError(t, err)
	// 60 + (0.90-0.80)/(0.15/30) = 80
	assert.Equal(t, 80, q.Param)
	assert.False(t, q.Lossless)
	assert.True(t, q.Searched)
}

func TestFindQuality_ClampsToRange(t *testing.T) {
	s, _ := fakeSearch(map[int]float64{60: 0.50, 90: 0.60})
	spec := Formats[WebP]

	q, err := FindQuality(context.Background(), s, 0.99, spec)
	require.NoError(t, err)
	assert.Equal(t, 100, q.Param)
	assert.True(t, q.Lossless, "resolving to the maximum applies lossless options")

	q, err = FindQuality(context.Background(), s, 0.01, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Param)
}

func TestFindQuality_LosslessDialSkipsSearch(t *testing.T) {
	s, encoded := fakeSearch(nil)

	q, err := FindQuality(context.Background(), s, 1, Formats[AVIF])
	require.NoError(t, err)
	assert.True(t, q.Lossless)
	assert.False(t, q.Searched)
	assert.Empty(t, *encoded)
}

func TestFindQuality_PNGNeverSearches(t *testing.T) {
	s, encoded := fakeSearch(nil)

	q, err := FindQuality(context.Background(), s, 0.5, Formats[PNG])
	require.NoError(t, err)
	assert.Equal(t, 100, q.Param)
	assert.Empty(t, *encoded)
}

func TestFindQuality_CodecError(t *testing.T) {
	s, _ := fakeSearch(nil)
	boom := errors.New("unsupported color space")
	s.Encode = func(context.Context, int, bool) ([]byte, error) { return nil, boom }

	_, err := FindQuality(context.Background(), s, 0.8, Formats[WebP])
	assert.ErrorIs(t, err, boom)
}

func TestFindQuality_Cancelled(t *testing.T) {
	s, _ := fakeSearch(map[int]float64{60: 0.8, 90: 0.9})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindQuality(ctx, s, 0.85, Formats[WebP])
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeAdaptive_ReusesProbe(t *testing.T) {
	s, encoded := fakeSearch(map[int]float64{60: 0.80, 90: 0.95})

	data, q, err := EncodeAdaptive(context.Background(), s, 0.95, Formats[WebP])
	require.NoError(t, err)
	assert.Equal(t, 90, q.Param)
	assert.Equal(t, "90", string(data))
	assert.Equal(t, []int{60, 90}, *encoded, "no extra final encode")
}

func TestEncodeAdaptive_FinalEncode(t *testing.T) {
	s, encoded := fakeSearch(map[int]float64{60: 0.80, 90: 0.95})

	data, q, err := EncodeAdaptive(context.Background(), s, 0.90, Formats[WebP])
	require.NoError(t, err)
	assert.Equal(t, 80, q.Param)
	assert.Equal(t, "80", string(data))
	assert.Equal(t, []int{60, 90, 80}, *encoded)
}

func TestExpand(t *testing.T) {
	jobs := Expand(SizeSet{{192, 192}, {512, 512}}, []FormatSpec{Formats[WebP], Formats[PNG]}, 0.8)
	require.Len(t, jobs, 4)

	var got []string
	for _, j := range jobs {
		got = append(got, j.String())
	}
	assert.Equal(t, []string{
		"webp@192x192 q=0.8",
		"png@192x192 q=lossless",
		"webp@512x512 q=0.8",
		"png@512x512 q=lossless",
	}, got)

	assert.Equal(t, "logo-192w.webp", VariantName("logo", jobs[0], true))
	assert.Equal(t, "logo.png", VariantName("logo", jobs[1], false))
}
