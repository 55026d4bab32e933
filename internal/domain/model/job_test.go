package model_test

import (
	"testing"
	"time"

	model "github.com/okian/voxmood/internal/domain/model"
	"github.com/okian/voxmood/internal/domain/upload"
	"github.com/smartystreets/goconvey/convey"
)

func TestJob(t *testing.T) {
	convey.Convey("Given a Job struct", t, func() {
		convey.Convey("When creating a new job", func() {
			now := time.Now()
			job := model.Job{
				ID:         "job-1",
				SessionID:  "session-1",
				Generation: 3,
				File:       upload.NewCandidate("clip.wav", []byte{1, 2, 3}),
				EnqueuedAt: now,
			}

			convey.Convey("Then it should carry the session generation and file", func() {
				convey.So(job.SessionID, convey.ShouldEqual, "session-1")
				convey.So(job.Generation, convey.ShouldEqual, uint64(3))
				convey.So(job.File.Size, convey.ShouldEqual, int64(3))
				convey.So(job.EnqueuedAt, convey.ShouldEqual, now)
			})
		})

		convey.Convey("When creating a job with zero values", func() {
			job := model.Job{}

			convey.Convey("Then it should have default values", func() {
				convey.So(job.ID, convey.ShouldBeEmpty)
				convey.So(job.Generation, convey.ShouldEqual, uint64(0))
				convey.So(job.File.Data, convey.ShouldBeNil)
			})
		})
	})
}
