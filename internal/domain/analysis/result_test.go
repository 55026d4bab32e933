package analysis_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/voxmood/internal/domain/analysis"
	"github.com/smartystreets/goconvey/convey"
)

func sample() analysis.Result {
	return analysis.Result{
		Individual: []analysis.ModelPrediction{
			{Model: "cnn", Emotion: "happy", Confidence: 0.81},
			{Model: "lstm", Emotion: "sad", Confidence: 0.42},
			{Model: "svm", Emotion: "happy", Confidence: 0.66},
		},
		Ensemble: analysis.EnsemblePrediction{Emotion: "happy", Confidence: 0.8234},
		AllProbabilities: analysis.Distribution{
			"happy": 0.6,
			"sad":   0.3,
			"angry": 0.1,
		},
	}
}

func TestResultRoundTrip(t *testing.T) {
	convey.Convey("Given a constructed analysis result", t, func() {
		want := sample()

		convey.Convey("When it is serialized and decoded again", func() {
			body, err := json.Marshal(want)
			convey.So(err, convey.ShouldBeNil)

			got, err := analysis.Decode(body)

			convey.Convey("Then every field survives", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, want)
			})

			convey.Convey("Then the documented keys are used", func() {
				var raw map[string]json.RawMessage
				convey.So(json.Unmarshal(body, &raw), convey.ShouldBeNil)
				convey.So(raw, convey.ShouldContainKey, "individual_predictions")
				convey.So(raw, convey.ShouldContainKey, "ensemble_prediction")
				convey.So(raw, convey.ShouldContainKey, "all_probabilities")
			})
		})
	})
}

func TestDecode(t *testing.T) {
	convey.Convey("Given service response bodies", t, func() {
		convey.Convey("When the body is not JSON", func() {
			_, err := analysis.Decode([]byte("<html>oops</html>"))

			convey.Convey("Then a decode error is returned", func() {
				convey.So(errors.Is(err, analysis.ErrDecode), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the body carries the documented shape", func() {
			r, err := analysis.Decode([]byte(`{
				"individual_predictions": [{"model": "cnn", "emotion": "angry", "confidence": 0.9}],
				"ensemble_prediction": {"emotion": "angry", "confidence": 0.9},
				"all_probabilities": {"angry": 0.9, "calm": 0.1}
			}`))

			convey.Convey("Then it is parsed in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(r.PrimaryEmotion(), convey.ShouldEqual, "angry")
				convey.So(len(r.Individual), convey.ShouldEqual, 1)
				convey.So(r.AllProbabilities.Labels(), convey.ShouldResemble, []string{"angry", "calm"})
			})
		})
	})
}

func TestClone(t *testing.T) {
	convey.Convey("Given a result and its clone", t, func() {
		orig := sample()
		c := orig.Clone()

		convey.Convey("When the clone is modified", func() {
			c.Individual[0].Emotion = "neutral"
			c.AllProbabilities["happy"] = 0

			convey.Convey("Then the original is untouched", func() {
				convey.So(orig.Individual[0].Emotion, convey.ShouldEqual, "happy")
				convey.So(orig.AllProbabilities["happy"], convey.ShouldEqual, 0.6)
			})
		})
	})
}

func TestGaps(t *testing.T) {
	convey.Convey("Given upstream payloads", t, func() {
		convey.Convey("When the distribution is consistent", func() {
			convey.Convey("Then no gap is reported", func() {
				convey.So(sample().Gaps(), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the distribution does not sum to one and misses an emotion", func() {
			r := sample()
			r.AllProbabilities = analysis.Distribution{"happy": 0.5}

			gaps := r.Gaps()

			convey.Convey("Then both gaps are reported and nothing is corrected", func() {
				convey.So(len(gaps), convey.ShouldEqual, 2)
				convey.So(r.AllProbabilities["happy"], convey.ShouldEqual, 0.5)
			})
		})
	})
}
