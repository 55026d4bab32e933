// Package analysis holds the result returned by the prediction service.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDecode marks a body that could not be parsed as a Result.
var ErrDecode = errors.New("decode analysis result")

// ModelPrediction is one upstream model's verdict.
type ModelPrediction struct {
	Model      string  `json:"model"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// EnsemblePrediction is the combined verdict across models.
type EnsemblePrediction struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Distribution maps emotion labels to probabilities. It is kept as received;
// values are not normalized.
type Distribution map[string]float64

// Sum adds every probability.
func (d Distribution) Sum() float64 {
	var s float64
	for _, p := range d {
		s += p
	}
	return s
}

// Labels returns the emotion labels in lexical order.
func (d Distribution) Labels() []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Result is the full response of one analysis. Individual predictions keep the
// order the service returned them in.
type Result struct {
	Individual       []ModelPrediction  `json:"individual_predictions"`
	Ensemble         EnsemblePrediction `json:"ensemble_prediction"`
	AllProbabilities Distribution       `json:"all_probabilities"`
}

// PrimaryEmotion is the ensemble emotion.
func (r Result) PrimaryEmotion() string {
	return r.Ensemble.Emotion
}

// Clone returns a deep copy so a stored result is never shared.
func (r Result) Clone() Result {
	out := Result{Ensemble: r.Ensemble}
	if r.Individual != nil {
		out.Individual = make([]ModelPrediction, len(r.Individual))
		copy(out.Individual, r.Individual)
	}
	if r.AllProbabilities != nil {
		out.AllProbabilities = make(Distribution, len(r.AllProbabilities))
		for k, v := range r.AllProbabilities {
			out.AllProbabilities[k] = v
		}
	}
	return out
}

// distributionTolerance is how far the probability sum may drift from 1
// before Gaps reports it.
const distributionTolerance = 0.01

// Gaps lists inconsistencies in the upstream payload: a distribution that
// does not sum to 1 and predicted emotions missing from the distribution.
// Nothing is corrected.
func (r Result) Gaps() []string {
	var gaps []string
	if len(r.AllProbabilities) > 0 {
		if s := r.AllProbabilities.Sum(); math.Abs(s-1) > distributionTolerance {
			gaps = append(gaps, fmt.Sprintf("probabilities sum to %.4f", s))
		}
	}
	seen := make(map[string]bool)
	check := func(emotion string) {
		if emotion == "" || seen[emotion] {
			return
		}
		seen[emotion] = true
		if _, ok := r.AllProbabilities[emotion]; !ok {
			gaps = append(gaps, fmt.Sprintf("emotion %q missing from all_probabilities", emotion))
		}
	}
	check(r.Ensemble.Emotion)
	for _, p := range r.Individual {
		check(p.Emotion)
	}
	return gaps
}

// Decode parses a service response body. Only what is needed to deserialize
// is checked.
func Decode(body []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(body, &r); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return r, nil
}
