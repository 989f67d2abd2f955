package transcribe

// Chunk is one bounded sub-range of a media item's audio.
// Start is absolute (seconds from the start of the source media); Duration
// includes the trailing overlap margin, except for the final chunk, which is
// clamped to the media's end.
type Chunk struct {
	Index    int
	Start    float64
	Duration float64
}

// End returns the absolute end of the chunk.
func (c Chunk) End() float64 { return c.Start + c.Duration }

// PlanChunks partitions [0, duration) into fixed windows of length window,
// each widened by overlap at its trailing edge so a word split across a
// boundary is not lost. Media no longer than window yields a single chunk.
func PlanChunks(duration, window, overlap float64) []Chunk {
	if duration <= 0 {
		return nil
	}
	if duration <= window {
		return []Chunk{{Index: 0, Start: 0, Duration: duration}}
	}

	var chunks []Chunk
	for start := 0.0; start < duration; start += window {
		d := window + overlap
		if start+d > duration {
			d = duration - start
		}
		chunks = append(chunks, Chunk{
			Index:    len(chunks),
			Start:    start,
			Duration: d,
		})
	}
	return chunks
}
