package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fakeProvider returns scripted responses keyed by call order. Calls beyond
// the script repeat the last entry.
type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	script []func(call int) (*Response, error)
	onCall func(call int)
}

func (p *fakeProvider) Transcribe(ctx context.Context, path string, opts TranscribeOpts) (*Response, error) {
	p.mu.Lock()
	call := p.calls
	p.calls++
	p.mu.Unlock()
	if p.onCall != nil {
		p.onCall(call)
	}
	i := call
	if i >= len(p.script) {
		i = len(p.script) - 1
	}
	return p.script[i](call)
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-1" }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeStore struct {
	mu       sync.Mutex
	appended [][]database.SegmentRow
	complete bool
	language string
}

func (s *fakeStore) AppendSegments(ctx context.Context, mediaID uuid.UUID, segs []database.SegmentRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, segs)
	return nil
}

func (s *fakeStore) MarkTranscriptComplete(ctx context.Context, mediaID uuid.UUID, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete = true
	s.language = language
	return nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
}

func (e *fakeExtractor) ExtractRange(ctx context.Context, srcPath string, start, duration float64) (string, func(), error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return srcPath, func() {}, nil
}

func okResponse(lang string, text string) func(int) (*Response, error) {
	return func(int) (*Response, error) {
		return &Response{
			Language: lang,
			Segments: []Segment{{Start: 1.0, End: 4.0, Text: text, Confidence: 0.9}},
		}, nil
	}
}

func newTestEngine(p Provider, s SegmentStore, x Extractor, mod func(*EngineOptions)) *Engine {
	opts := EngineOptions{
		Provider:   p,
		Store:      s,
		Extract:    x,
		Window:     600,
		Overlap:    3,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
		Log:        zerolog.Nop(),
	}
	if mod != nil {
		mod(&opts)
	}
	return NewEngine(opts)
}

func TestEngineRunMultiChunk(t *testing.T) {
	provider := &fakeProvider{script: []func(int) (*Response, error){okResponse("en", "hello")}}
	store := &fakeStore{}
	extract := &fakeExtractor{}

	var progress []string
	var lastChunk int
	engine := newTestEngine(provider, store, extract, func(o *EngineOptions) {
		o.OnProgress = func(ctx context.Context, chunk, total int, msg string) {
			if total != 6 {
				t.Errorf("progress total %d, want 6", total)
			}
			if chunk <= lastChunk {
				t.Errorf("progress chunk %d not strictly increasing after %d", chunk, lastChunk)
			}
			lastChunk = chunk
			progress = append(progress, msg)
		}
	})

	lang, err := engine.Run(context.Background(), uuid.New(), "/tmp/media.mp4", 3600)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lang != "en" {
		t.Errorf("language %q, want en", lang)
	}
	if len(progress) != 6 {
		t.Fatalf("expected 6 progress messages, got %d", len(progress))
	}
	if !strings.Contains(progress[0], "chunk 1/6") || !strings.Contains(progress[0], "0:00") {
		t.Errorf("first progress message %q", progress[0])
	}
	if !strings.Contains(progress[5], "chunk 6/6") {
		t.Errorf("last progress message %q", progress[5])
	}
	if len(store.appended) != 6 {
		t.Errorf("expected 6 append batches, got %d", len(store.appended))
	}
	if !store.complete {
		t.Error("transcript not marked complete")
	}
	if extract.calls != 6 {
		t.Errorf("expected 6 extractions, got %d", extract.calls)
	}
}

func TestEngineSingleChunkSkipsExtract(t *testing.T) {
	provider := &fakeProvider{script: []func(int) (*Response, error){okResponse("de", "hallo")}}
	store := &fakeStore{}
	extract := &fakeExtractor{}
	engine := newTestEngine(provider, store, extract, nil)

	lang, err := engine.Run(context.Background(), uuid.New(), "/tmp/short.mp3", 120)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lang != "de" {
		t.Errorf("language %q, want de", lang)
	}
	if extract.calls != 0 {
		t.Errorf("single-chunk run must transcribe the source directly, got %d extractions", extract.calls)
	}
	if store.language != "de" {
		t.Errorf("stored language %q", store.language)
	}
}

func TestEngineRetriesTransientFailure(t *testing.T) {
	provider := &fakeProvider{script: []func(int) (*Response, error){
		func(int) (*Response, error) { return nil, errors.New("upstream 503") },
		func(int) (*Response, error) { return nil, errors.New("upstream 503") },
		okResponse("en", "third time"),
	}}
	store := &fakeStore{}
	engine := newTestEngine(provider, store, &fakeExtractor{}, nil)

	if _, err := engine.Run(context.Background(), uuid.New(), "/tmp/a.mp3", 60); err != nil {
		t.Fatalf("Run should succeed on the third attempt: %v", err)
	}
	if provider.callCount() != 3 {
		t.Errorf("expected 3 provider calls, got %d", provider.callCount())
	}
	if !store.complete {
		t.Error("transcript not marked complete")
	}
}

func TestEngineRetriesExhausted(t *testing.T) {
	// Chunks 1-3 succeed, chunk 4 always fails.
	provider := &fakeProvider{}
	provider.script = []func(int) (*Response, error){
		func(call int) (*Response, error) {
			if call < 3 {
				return okResponse("en", fmt.Sprintf("chunk %d", call))(call)
			}
			return nil, errors.New("model overloaded")
		},
	}
	store := &fakeStore{}
	engine := newTestEngine(provider, store, &fakeExtractor{}, nil)

	_, err := engine.Run(context.Background(), uuid.New(), "/tmp/a.mp4", 3600)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "chunk 4/6") {
		t.Errorf("error should identify the failing chunk: %v", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error should report attempt count: %v", err)
	}
	// Segments from chunks that succeeded stay queryable for diagnostics.
	if len(store.appended) != 3 {
		t.Errorf("expected 3 appended batches before the failure, got %d", len(store.appended))
	}
	if store.complete {
		t.Error("failed run must never mark the transcript complete")
	}
	// 3 successes + 3 failed attempts on chunk 4.
	if provider.callCount() != 6 {
		t.Errorf("expected 6 provider calls, got %d", provider.callCount())
	}
}

func TestEngineCancelledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{
		script: []func(int) (*Response, error){okResponse("en", "hello")},
		onCall: func(call int) {
			if call == 1 {
				cancel() // cancel while chunk 2 is in flight
			}
		},
	}
	store := &fakeStore{}
	engine := newTestEngine(provider, store, &fakeExtractor{}, nil)

	_, err := engine.Run(ctx, uuid.New(), "/tmp/a.mp4", 3600)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain: %v", err)
	}
	if store.complete {
		t.Error("cancelled run must never mark the transcript complete")
	}
	if provider.callCount() > 2 {
		t.Errorf("no chunk should start after cancellation, got %d calls", provider.callCount())
	}
}

func TestEngineNoDuration(t *testing.T) {
	engine := newTestEngine(&fakeProvider{script: []func(int) (*Response, error){okResponse("en", "x")}}, &fakeStore{}, &fakeExtractor{}, nil)
	if _, err := engine.Run(context.Background(), uuid.New(), "/tmp/a.mp4", 0); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestEngineAssignsSpeakers(t *testing.T) {
	provider := &fakeProvider{script: []func(int) (*Response, error){
		func(int) (*Response, error) {
			return &Response{Language: "en", Segments: []Segment{
				{Start: 0.0, End: 2.0, Text: "first", Confidence: 0.9},
				{Start: 5.0, End: 7.0, Text: "after a long pause", Confidence: 0.9}, // gap > 1.5s flips speaker
			}}, nil
		},
	}}
	store := &fakeStore{}
	engine := newTestEngine(provider, store, &fakeExtractor{}, func(o *EngineOptions) {
		o.AssignSpeakers = true
	})

	if _, err := engine.Run(context.Background(), uuid.New(), "/tmp/a.mp3", 60); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rows := store.appended[0]
	if len(rows) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(rows))
	}
	if rows[0].Speaker == nil || rows[1].Speaker == nil {
		t.Fatal("segments missing speaker labels")
	}
	if *rows[0].Speaker == *rows[1].Speaker {
		t.Errorf("gap over threshold should flip speakers, both %q", *rows[0].Speaker)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 2 * time.Second
	ceiling := 60 * time.Second
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for n, w := range want {
		if got := backoffDelay(base, ceiling, n); got != w {
			t.Errorf("backoffDelay(n=%d) = %v, want %v", n, got, w)
		}
	}
	if got := backoffDelay(base, ceiling, 10); got != ceiling {
		t.Errorf("backoffDelay(n=10) = %v, want ceiling %v", got, ceiling)
	}
}
