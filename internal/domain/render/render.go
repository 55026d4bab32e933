// Package render turns an analysis result into a display model. It makes no
// decisions and has no side effects.
package render

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/voxmood/internal/domain/analysis"
)

// Mode selects what the results area shows.
type Mode int

const (
	ModeEmpty Mode = iota
	ModeSkeleton
	ModeResult
)

func (m Mode) String() string {
	switch m {
	case ModeSkeleton:
		return "skeleton"
	case ModeResult:
		return "result"
	default:
		return "empty"
	}
}

// Skeleton is the fixed shape of the loading placeholder.
type Skeleton struct {
	Ensemble int
	Cards    int
	Bars     int
}

// LoadingSkeleton is shown for every in-flight analysis.
var LoadingSkeleton = Skeleton{Ensemble: 1, Cards: 3, Bars: 5}

// Ensemble is the headline verdict.
type Ensemble struct {
	Emotion    string
	Confidence string
}

// Card summarizes one model.
type Card struct {
	ID         string
	Name       string
	Emotion    string
	Confidence string
}

// Bar is one entry of the probability distribution.
type Bar struct {
	Label       string
	Probability float64
	Percent     string
	Width       float64 // percent of the full bar, within [0, 100]
}

// View is everything the page needs to draw the results area.
type View struct {
	Mode     Mode
	Skeleton Skeleton
	Ensemble Ensemble
	Cards    []Card
	Bars     []Bar
}

// ModelNames maps the model identifiers returned by the prediction service to
// the datasets they were trained on. Lookup is case-sensitive.
var ModelNames = map[string]string{
	"TESS":    "Toronto Emotional Speech Set",
	"RAVDESS": "Ryerson Audio-Visual Database",
	"CREMA-D": "Crowd-sourced Emotional Multimodal Actors Dataset",
}

// ModelName returns the display name of id, or id itself when unmapped.
func ModelName(id string) string {
	if name, ok := ModelNames[id]; ok {
		return name
	}
	return id
}

// FormatConfidence renders v in [0,1] as a percentage with one decimal.
func FormatConfidence(v float64) string {
	return fmt.Sprintf("%.1f%%", math.Round(v*1000)/10)
}

// Render builds the view. Loading always wins over a stale result.
func Render(result *analysis.Result, loading bool) View {
	switch {
	case loading:
		return View{Mode: ModeSkeleton, Skeleton: LoadingSkeleton}
	case result == nil:
		return View{Mode: ModeEmpty}
	}

	v := View{
		Mode: ModeResult,
		Ensemble: Ensemble{
			Emotion:    result.Ensemble.Emotion,
			Confidence: FormatConfidence(result.Ensemble.Confidence),
		},
		Cards: make([]Card, 0, len(result.Individual)),
		Bars:  make([]Bar, 0, len(result.AllProbabilities)),
	}
	for _, p := range result.Individual {
		v.Cards = append(v.Cards, Card{
			ID:         p.Model,
			Name:       ModelName(p.Model),
			Emotion:    p.Emotion,
			Confidence: FormatConfidence(p.Confidence),
		})
	}
	// Labels are lexical, so the stable sort leaves ties in label order.
	for _, label := range result.AllProbabilities.Labels() {
		p := result.AllProbabilities[label]
		v.Bars = append(v.Bars, Bar{
			Label:       label,
			Probability: p,
			Percent:     FormatConfidence(p),
			Width:       math.Max(0, math.Min(100, p*100)),
		})
	}
	sort.SliceStable(v.Bars, func(i, j int) bool {
		return v.Bars[i].Probability > v.Bars[j].Probability
	})
	return v
}
