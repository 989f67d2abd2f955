package highlight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/rs/zerolog"
)

// Candidate is a proposed highlight window on the absolute timeline.
type Candidate struct {
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Score       float64  `json:"score"`
	Tags        []string `json:"tags,omitempty"`
}

// Scorer proposes ranked candidate windows from a completed transcript.
// It is an external collaborator; the pipeline treats it as opaque.
type Scorer interface {
	Score(ctx context.Context, segments []database.SegmentRow) ([]Candidate, error)
	Name() string
}

// HTTPScorer calls a remote scoring service: the transcript goes out as JSON,
// ranked candidate windows come back.
type HTTPScorer struct {
	endpoint   string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPScorer creates a scorer client for the given endpoint.
func NewHTTPScorer(endpoint string, timeout time.Duration, log zerolog.Logger) *HTTPScorer {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPScorer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (s *HTTPScorer) Name() string { return "http" }

type scoreRequest struct {
	Segments []database.SegmentRow `json:"segments"`
}

type scoreResponse struct {
	Highlights []Candidate `json:"highlights"`
}

// Score submits the transcript and returns deduplicated candidates ordered
// by descending score.
func (s *HTTPScorer) Score(ctx context.Context, segments []database.SegmentRow) ([]Candidate, error) {
	body, err := json.Marshal(scoreRequest{Segments: segments})
	if err != nil {
		return nil, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scorer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("scorer returned %d: %s", resp.StatusCode, string(b))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode scorer response: %w", err)
	}

	cands := Dedupe(out.Highlights)
	s.log.Debug().Int("raw", len(out.Highlights)).Int("kept", len(cands)).Msg("highlight candidates scored")
	return cands, nil
}

// Dedupe removes overlapping candidate windows, keeping the higher-scored
// one. Output is ordered by descending score.
func Dedupe(cands []Candidate) []Candidate {
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var kept []Candidate
	for _, c := range sorted {
		if c.End <= c.Start {
			continue
		}
		overlaps := false
		for _, k := range kept {
			if c.Start < k.End && c.End > k.Start {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}
