package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "whisper", "deepinfra"
	Model() string // model identifier for logs
}

// TranscribeOpts are per-request options for an STT provider.
// Zero-value fields are omitted from the request.
type TranscribeOpts struct {
	Temperature float64
	Language    string
	Prompt      string // initial_prompt / domain vocabulary

	// Anti-hallucination
	ConditionOnPreviousText *bool   // nil = server default; false = prevent cascading
	NoSpeechThreshold       float64 // 0 = server default
	VadFilter               bool
}

// Response is the common transcription result from any provider.
// Segment times are relative to the start of the submitted audio; the caller
// is responsible for translating them onto the source media's timeline.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds
	Segments []Segment
	Words    []Word // nil if provider doesn't support word timestamps
}

// Segment is a timed text span from an STT provider.
type Segment struct {
	Start      float64
	End        float64
	Text       string
	Confidence float32 // (0, 1], 1.0 when the provider reports none
}

// Word is a timestamped word from any STT provider.
type Word struct {
	Word  string
	Start float64 // seconds
	End   float64 // seconds
}
