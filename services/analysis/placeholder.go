package analysis

import (
	"context"

	"github.com/nijaru/swing-analysis/models"
)

const PlaceholderName = "placeholder"

// Placeholder returns the same sample analysis for every video. Only the
// video URL is taken from the input; perspective, player height and club
// length are ignored.
type Placeholder struct{}

func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

func (p *Placeholder) Name() string {
	return PlaceholderName
}

// Analyze never fails. Every call builds fresh slices so callers may modify
// the result.
func (p *Placeholder) Analyze(_ context.Context, video models.VideoInput) (*models.AnalysisResponse, error) {
	return &models.AnalysisResponse{
		VideoURL:       video.VideoURL,
		Segments:       sampleSegments(),
		KeyMetrics:     sampleMetrics(),
		CoachingCues:   sampleCues(),
		ProComparisons: sampleComparisons(),
	}, nil
}

func sampleSegments() []models.Segment {
	return []models.Segment{
		{Name: "Address", StartTimeS: 0.0, EndTimeS: 0.7, Notes: "Stable base"},
		{
			Name:       "Top",
			StartTimeS: 0.7,
			EndTimeS:   1.4,
			Notes:      "Full shoulder turn with controlled tempo",
		},
		{
			Name:       "Impact",
			StartTimeS: 1.5,
			EndTimeS:   1.6,
			Notes:      "Hands ahead of clubhead with forward shaft lean",
		},
		{
			Name:       "Finish",
			StartTimeS: 1.6,
			EndTimeS:   2.2,
			Notes:      "Balanced hold with belt buckle facing target",
		},
	}
}

func sampleMetrics() []models.Metric {
	return []models.Metric{
		{
			Name:           "Clubhead speed",
			Value:          98.4,
			Unit:           "mph",
			Interpretation: "On track for a mid-handicap driver swing; potential +4–6 mph with better ground use",
		},
		{
			Name:           "X-factor stretch",
			Value:          18.2,
			Unit:           "deg",
			Interpretation: "Separation between pelvis and thorax during transition is modest; room to increase for speed",
		},
		{
			Name:           "Attack angle",
			Value:          2.4,
			Unit:           "deg",
			Interpretation: "Slightly upward, good for maximizing carry with driver",
		},
		{
			Name:           "Low-point control",
			Value:          2.1,
			Unit:           "in fwd",
			Interpretation: "Consistent forward low point; improves contact with irons",
		},
	}
}

func sampleComparisons() []models.Comparison {
	return []models.Comparison{
		{
			ProName:        "Rory McIlroy",
			Summary:        "Similar tempo; Rory opens pelvis sooner in transition which shallows the club and frees rotation.",
			Strengths:      []string{"Balanced finish", "Neutral club path"},
			Deltas:         []string{"Later trail elbow adduction", "Less early wrist flexion"},
			ReferenceVideo: "https://example.com/rory-down-the-line.mp4",
		},
		{
			ProName:        "Nelly Korda",
			Summary:        "Nelly maintains more spine inclination through impact, limiting early extension and stabilizing face control.",
			Strengths:      []string{"Great rhythm", "Centered pressure shift"},
			Deltas:         []string{"More stable head during downswing"},
			ReferenceVideo: "https://example.com/nelly-face-on.mp4",
		},
	}
}

func sampleCues() []string {
	return []string{
		"Feel the lead hip clear earlier to open space for the trail arm",
		"Keep trail wrist hinged longer to shallow the club in transition",
		"Stay in posture through impact—imagine your belt buckle stays back until after strike",
	}
}
