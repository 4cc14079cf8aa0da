package images

import (
	"context"
	"fmt"
	"image"
	"math"
)

// EncodeFunc encodes the reference image at a quality parameter.
type EncodeFunc func(ctx context.Context, param int, lossless bool) ([]byte, error)

// DecodeFunc decodes encoded bytes back into a bitmap.
type DecodeFunc func(data []byte) (image.Image, error)

// SimilarityFunc returns a perceptual similarity in [0,1].
type SimilarityFunc func(a, b image.Image) float64

// Search binds quality search to one reference image and one encoder.
type Search struct {
	Encode     EncodeFunc
	Decode     DecodeFunc
	Similarity SimilarityFunc

	// Reference is the bitmap encoded by Encode and compared against.
	Reference image.Image
}

// Probe is one (parameter, similarity) sample.
type Probe struct {
	Param      int
	Similarity float64
	Data       []byte
}

// Quality is the outcome of a search.
type Quality struct {
	Param    int
	Lossless bool

	// Searched is true when probes were encoded.
	Searched bool

	// Guarded is true when the monotonicity guard rejected the probes.
	Guarded bool

	Low, High Probe
}

// FindQuality returns the encoder parameter whose predicted similarity to
// the reference equals target. Codec errors are returned unchanged.
func FindQuality(ctx context.Context, s Search, target float64, spec FormatSpec) (Quality, error) {
	maxQuality := Quality{Param: spec.Range.Max, Lossless: spec.Lossless}
	if !spec.Searchable || target >= 1 {
		return maxQuality, nil
	}

	lowParam, highParam := spec.Range.Clamp(spec.Probes[0]), spec.Range.Clamp(spec.Probes[1])
	if lowParam >= highParam {
		return Quality{}, fmt.Errorf("images: %s probes %d/%d are not increasing", spec.Format, lowParam, highParam)
	}

	low, err := s.probe(ctx, lowParam)
	if err != nil {
		return Quality{}, err
	}
	high, err := s.probe(ctx, highParam)
	if err != nil {
		return Quality{}, err
	}

	q := Quality{Searched: true, Low: low, High: high}
	if low.Similarity >= high.Similarity {
		q.Param = spec.Range.Max
		q.Lossless = spec.Lossless
		q.Guarded = true
		return q, nil
	}

	slope := (high.Similarity - low.Similarity) / float64(high.Param-low.Param)
	predicted := float64(low.Param) + (target-low.Similarity)/slope
	q.Param = spec.Range.Clamp(int(math.Round(predicted)))
	if q.Param == spec.Range.Max {
		q.Lossless = spec.Lossless
	}
	return q, nil
}

func (s Search) probe(ctx context.Context, param int) (Probe, error) {
	if err := ctx.Err(); err != nil {
		return Probe{}, err
	}
	data, err := s.Encode(ctx, param, false)
	if err != nil {
		return Probe{}, fmt.Errorf("probe encode at %d: %w", param, err)
	}
	decoded, err := s.Decode(data)
	if err != nil {
		return Probe{}, fmt.Errorf("probe decode at %d: %w", param, err)
	}
	sim := s.Similarity(s.Reference, decoded)
	if math.IsNaN(sim) {
		sim = 0
	}
	return Probe{Param: param, Similarity: sim, Data: data}, nil
}

// EncodeAdaptive runs FindQuality and performs the final encode, reusing a
// probe's bytes when the resolved parameter equals a probe parameter.
func EncodeAdaptive(ctx context.Context, s Search, target float64, spec FormatSpec) ([]byte, Quality, error) {
	q, err := FindQuality(ctx, s, target, spec)
	if err != nil {
		return nil, q, err
	}
	if !q.Lossless && q.Searched {
		for _, p := range []Probe{q.Low, q.High} {
			if p.Param == q.Param && p.Data != nil {
				return p.Data, q, nil
			}
		}
	}
	data, err := s.Encode(ctx, q.Param, q.Lossless)
	if err != nil {
		return nil, q, fmt.Errorf("encode at %d: %w", q.Param, err)
	}
	return data, q, nil
}
