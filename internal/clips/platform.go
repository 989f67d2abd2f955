package clips

import (
	"fmt"
	"sort"
)

// PlatformSpec is the output encoding for one distribution target.
type PlatformSpec struct {
	Name        string  `json:"name"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	MaxDuration float64 `json:"max_duration"` // seconds
	AspectRatio string  `json:"aspect_ratio"`
}

// Vertical reports whether the target is taller than wide.
func (p PlatformSpec) Vertical() bool { return p.Height > p.Width }

var platforms = map[string]PlatformSpec{
	"instagram_feed":  {Name: "instagram_feed", Width: 1080, Height: 1080, MaxDuration: 60, AspectRatio: "1:1"},
	"instagram_reels": {Name: "instagram_reels", Width: 1080, Height: 1920, MaxDuration: 90, AspectRatio: "9:16"},
	"tiktok":          {Name: "tiktok", Width: 1080, Height: 1920, MaxDuration: 180, AspectRatio: "9:16"},
	"youtube":         {Name: "youtube", Width: 1920, Height: 1080, MaxDuration: 3600, AspectRatio: "16:9"},
	"youtube_shorts":  {Name: "youtube_shorts", Width: 1080, Height: 1920, MaxDuration: 60, AspectRatio: "9:16"},
	"linkedin":        {Name: "linkedin", Width: 1920, Height: 1080, MaxDuration: 600, AspectRatio: "16:9"},
	"twitter":         {Name: "twitter", Width: 1280, Height: 720, MaxDuration: 140, AspectRatio: "16:9"},
}

// Platform returns the spec for a platform name.
func Platform(name string) (PlatformSpec, error) {
	spec, ok := platforms[name]
	if !ok {
		return PlatformSpec{}, fmt.Errorf("unknown platform %q", name)
	}
	return spec, nil
}

// Platforms lists all known specs, ordered by name.
func Platforms() []PlatformSpec {
	out := make([]PlatformSpec, 0, len(platforms))
	for _, spec := range platforms {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidateWindow checks a requested clip window against the platform's
// duration ceiling and the global bounds.
func ValidateWindow(spec PlatformSpec, start, end, minSeconds, maxSeconds float64) error {
	if end <= start {
		return fmt.Errorf("clip end %.2f must be after start %.2f", end, start)
	}
	if start < 0 {
		return fmt.Errorf("clip start %.2f must not be negative", start)
	}
	d := end - start
	if minSeconds > 0 && d < minSeconds {
		return fmt.Errorf("clip duration %.2fs is below the %.0fs minimum", d, minSeconds)
	}
	if maxSeconds > 0 && d > maxSeconds {
		return fmt.Errorf("clip duration %.2fs exceeds the %.0fs maximum", d, maxSeconds)
	}
	if d > spec.MaxDuration {
		return fmt.Errorf("clip duration %.2fs exceeds %s limit of %.0fs", d, spec.Name, spec.MaxDuration)
	}
	return nil
}
