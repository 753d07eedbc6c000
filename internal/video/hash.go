package video

// FieldHash is the hardware's 64-bit content hash of one field, read back
// as four 16-bit words.
type FieldHash [4]uint16

// combineDualHash assembles a field hash from the two per-path hashes in
// dual-pixel mode. Each path contributes its two significant words:
// [oddMSB, evenMSB, oddLSB, evenLSB].
func combineDualHash(odd, even [4]uint16) FieldHash {
	return FieldHash{odd[0], even[0], odd[1], even[1]}
}

// Histogram layout: the sampling tool divides the field into a gridSize x
// gridSize grid and buckets each color channel into histogramBuckets
// coarse bins, normalized by sample count.
const (
	histogramGridSize = 3
	histogramChannels = 3
	histogramBuckets  = 4
	histogramSamples  = 1000
	histogramLen      = histogramGridSize * histogramGridSize * histogramChannels * histogramBuckets
)

// Histogram is the normalized color histogram of one field.
type Histogram []float64
