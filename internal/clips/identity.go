package clips

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// identityEpsilon is the rounding precision applied to clip boundaries
// before hashing. Windows closer together than this collapse to one
// identity, so floating-point jitter from UI scrubbing or recomputed
// highlight windows cannot mint spurious duplicate clips.
const identityEpsilon = 0.01

// roundBoundary snaps a timestamp to the identity precision.
func roundBoundary(t float64) float64 {
	return math.Round(t/identityEpsilon) * identityEpsilon
}

// Identity derives the stable content hash for a candidate clip. It is
// content-addressed, not request-addressed: any two requests describing the
// same window, platform, and caption text share one identity.
func Identity(mediaID uuid.UUID, start, end float64, platform, captionsText string) string {
	payload := fmt.Sprintf("%s:%.2f:%.2f:%s:%s",
		mediaID, roundBoundary(start), roundBoundary(end), platform, captionsText)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// IDFromIdentity derives the clip's UUID from its identity hash, so the
// stored id is itself deterministic.
func IDFromIdentity(identity string) (uuid.UUID, error) {
	raw, err := hex.DecodeString(identity)
	if err != nil || len(raw) < 16 {
		return uuid.Nil, fmt.Errorf("invalid identity %q", identity)
	}
	var id uuid.UUID
	copy(id[:], raw[:16])
	return id, nil
}
