package images

import (
	"fmt"
	"strconv"
)

// EncodeJob is one output variant of an image.
type EncodeJob struct {
	Size   Size
	Format FormatSpec

	// Quality is the quality dial in [0,1] the job is encoded for.
	Quality float64
}

// Lossless reports whether the job skips quality search.
func (j EncodeJob) Lossless() bool {
	return j.Quality >= 1 || !j.Format.Searchable
}

// QualityLabel is the quality dial, or "lossless" when no search runs.
func (j EncodeJob) QualityLabel() string {
	if j.Lossless() {
		return "lossless"
	}
	return strconv.FormatFloat(j.Quality, 'g', -1, 64)
}

func (j EncodeJob) String() string {
	return fmt.Sprintf("%s@%s q=%s", j.Format.Format, j.Size, j.QualityLabel())
}

// Expand creates one job per size and format, ordered by size then by the
// declared format order.
func Expand(sizes SizeSet, formats []FormatSpec, quality float64) []EncodeJob {
	jobs := make([]EncodeJob, 0, len(sizes)*len(formats))
	for _, size := range sizes {
		for _, f := range formats {
			jobs = append(jobs, EncodeJob{Size: size, Format: f, Quality: quality})
		}
	}
	return jobs
}

// VariantName is the file name of a job's output for a source stem. A
// non-responsive set keeps the stem without a width suffix.
func VariantName(stem string, job EncodeJob, responsive bool) string {
	if !responsive {
		return stem + job.Format.Ext
	}
	return fmt.Sprintf("%s-%dw%s", stem, job.Size.Width, job.Format.Ext)
}
