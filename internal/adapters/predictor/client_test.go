package predictor_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/voxmood/internal/adapters/predictor"
	"github.com/okian/voxmood/internal/domain/upload"
	"github.com/smartystreets/goconvey/convey"
)

const okBody = `{
	"individual_predictions": [
		{"model": "TESS", "emotion": "happy", "confidence": 0.9},
		{"model": "lstm", "emotion": "sad", "confidence": 0.4}
	],
	"ensemble_prediction": {"emotion": "happy", "confidence": 0.8234},
	"all_probabilities": {"happy": 0.6, "sad": 0.3, "angry": 0.1}
}`

func wav() upload.Candidate {
	return upload.NewCandidate("clip.wav", []byte("RIFF....WAVEfmt "))
}

// closedURL returns an address nothing listens on.
func closedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return "http://" + addr + "/api"
}

func TestClientAnalyze(t *testing.T) {
	convey.Convey("Given a prediction service", t, func() {
		ctx := context.Background()

		convey.Convey("When it answers with a valid result", func() {
			var (
				gotPath, gotName, gotMethod string
				gotData                     []byte
				gotParts                    int
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotMethod = r.URL.Path, r.Method
				if err := r.ParseMultipartForm(1 << 20); err == nil {
					gotParts = len(r.MultipartForm.File) + len(r.MultipartForm.Value)
					if f, h, err := r.FormFile("file"); err == nil {
						gotName = h.Filename
						gotData, _ = io.ReadAll(f)
						_ = f.Close()
					}
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = fmt.Fprint(w, okBody)
			}))
			defer srv.Close()

			c := predictor.New(srv.URL + "/api/")
			res, err := c.Analyze(ctx, wav())

			convey.Convey("Then one multipart part named file is posted to /predict", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(gotMethod, convey.ShouldEqual, http.MethodPost)
				convey.So(gotPath, convey.ShouldEqual, "/api/predict")
				convey.So(gotParts, convey.ShouldEqual, 1)
				convey.So(gotName, convey.ShouldEqual, "clip.wav")
				convey.So(string(gotData), convey.ShouldEqual, "RIFF....WAVEfmt ")
			})

			convey.Convey("Then the result is decoded in service order", func() {
				convey.So(res.Ensemble.Confidence, convey.ShouldEqual, 0.8234)
				convey.So(res.Individual[0].Model, convey.ShouldEqual, "TESS")
				convey.So(res.Individual[1].Model, convey.ShouldEqual, "lstm")
				convey.So(len(res.AllProbabilities), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When it answers 503 with a body", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model unavailable", http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			_, err := predictor.New(srv.URL).Analyze(ctx, wav())

			convey.Convey("Then a ServerError carries status and trimmed body", func() {
				var se *predictor.ServerError
				convey.So(errors.As(err, &se), convey.ShouldBeTrue)
				convey.So(se.Status, convey.ShouldEqual, 503)
				convey.So(se.Body, convey.ShouldEqual, "model unavailable")
				convey.So(errors.Is(err, predictor.ErrServer), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "503")
				convey.So(err.Error(), convey.ShouldContainSubstring, "model unavailable")
			})
		})

		convey.Convey("When it answers 500 with an empty body", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			_, err := predictor.New(srv.URL).Analyze(ctx, wav())

			convey.Convey("Then the reason phrase is used", func() {
				var se *predictor.ServerError
				convey.So(errors.As(err, &se), convey.ShouldBeTrue)
				convey.So(se.Body, convey.ShouldEqual, "Internal Server Error")
			})
		})

		convey.Convey("When it answers 2xx with garbage", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				_, _ = fmt.Fprint(w, "not json")
			}))
			defer srv.Close()

			_, err := predictor.New(srv.URL).Analyze(ctx, wav())

			convey.Convey("Then a malformed response error is distinguishable from a server error", func() {
				var me *predictor.MalformedResponseError
				convey.So(errors.As(err, &me), convey.ShouldBeTrue)
				convey.So(errors.Is(err, predictor.ErrMalformedResponse), convey.ShouldBeTrue)
				convey.So(errors.Is(err, predictor.ErrServer), convey.ShouldBeFalse)
				convey.So(me.UserMessage(), convey.ShouldEqual, "Unknown error occurred")
			})
		})

		convey.Convey("When nothing listens at the endpoint", func() {
			_, err := predictor.New(closedURL(t)).Analyze(ctx, wav())

			convey.Convey("Then a NetworkError wraps the cause", func() {
				var ne *predictor.NetworkError
				convey.So(errors.As(err, &ne), convey.ShouldBeTrue)
				convey.So(ne.Unwrap(), convey.ShouldNotBeNil)
				convey.So(errors.Is(err, predictor.ErrNetwork), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a timeout is configured and the service stalls", func() {
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer srv.Close()
			defer close(release)

			c := predictor.New(srv.URL, predictor.WithTimeout(50*time.Millisecond))
			_, err := c.Analyze(ctx, wav())

			convey.Convey("Then the call fails as a network error", func() {
				convey.So(errors.Is(err, predictor.ErrNetwork), convey.ShouldBeTrue)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}

func TestClientEndpoint(t *testing.T) {
	convey.Convey("Given base URLs with and without trailing slashes", t, func() {
		convey.So(predictor.New("http://localhost:5000/api").Endpoint(), convey.ShouldEqual, "http://localhost:5000/api/predict")
		convey.So(predictor.New("http://localhost:5000/api//").Endpoint(), convey.ShouldEqual, "http://localhost:5000/api/predict")
	})
}
