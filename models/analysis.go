package models

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// VideoInput is the payload accepted by POST /analyze.
//
// Perspective, PlayerHeightCM and ClubLengthCM are accepted and stored but
// not consulted by the placeholder analyzer.
type VideoInput struct {
	VideoURL string `json:"video_url" validate:"required,weburl"`

	// Camera perspective such as "down-the-line" or "face-on"
	Perspective *string `json:"perspective,omitempty"`

	// Approximate player height, used to reduce scale ambiguity
	PlayerHeightCM *float64 `json:"player_height_cm,omitempty"`

	// Known club length, used for metric scaling
	ClubLengthCM *float64 `json:"club_length_cm,omitempty"`
}

// UnmarshalJSON accepts PlayerHeightCM and ClubLengthCM as JSON numbers or as
// strings holding a number, so "180" and 180 decode the same way.
func (in *VideoInput) UnmarshalJSON(data []byte) error {
	type plain VideoInput
	aux := struct {
		*plain
		PlayerHeightCM *looseFloat `json:"player_height_cm,omitempty"`
		ClubLengthCM   *looseFloat `json:"club_length_cm,omitempty"`
	}{plain: (*plain)(in)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	in.PlayerHeightCM = aux.PlayerHeightCM.ptr()
	in.ClubLengthCM = aux.ClubLengthCM.ptr()
	return nil
}

// looseFloat decodes a finite number from a JSON number or numeric string.
type looseFloat float64

var float64Type = reflect.TypeOf(float64(0))

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '"' {
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = looseFloat(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return &json.UnmarshalTypeError{Value: "string " + strconv.Quote(s), Type: float64Type}
	}
	*f = looseFloat(n)
	return nil
}

func (f *looseFloat) ptr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

// Segment is a labeled phase of a swing.
type Segment struct {
	Name       string  `json:"name" validate:"required"`
	StartTimeS float64 `json:"start_time_s"`
	EndTimeS   float64 `json:"end_time_s"`
	Notes      string  `json:"notes,omitempty"`
}

// Metric is a named measurement taken from the swing.
type Metric struct {
	Name           string  `json:"name" validate:"required"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit" validate:"required"`
	Interpretation string  `json:"interpretation,omitempty"`
}

// Comparison contrasts the analyzed swing with a professional reference swing.
type Comparison struct {
	ProName        string   `json:"pro_name" validate:"required"`
	Summary        string   `json:"summary" validate:"required"`
	Strengths      []string `json:"strengths"`
	Deltas         []string `json:"deltas"`
	ReferenceVideo string   `json:"reference_video,omitempty" validate:"omitempty,weburl"`
}

// AnalysisResponse is the result returned by POST /analyze.
type AnalysisResponse struct {
	VideoURL       string       `json:"video_url" validate:"required,weburl"`
	Segments       []Segment    `json:"segments" validate:"dive"`
	KeyMetrics     []Metric     `json:"key_metrics" validate:"dive"`
	CoachingCues   []string     `json:"coaching_cues"`
	ProComparisons []Comparison `json:"pro_comparisons" validate:"dive"`
}

// SegmentNames returns the segment names in order.
func (r *AnalysisResponse) SegmentNames() []string {
	names := make([]string, len(r.Segments))
	for i, s := range r.Segments {
		names[i] = s.Name
	}
	return names
}
