package web

import (
	"context"
	"errors"
	"io"
	"testing"

	service "github.com/okian/voxmood/internal/app"
	"github.com/okian/voxmood/internal/domain/session"
	"github.com/smartystreets/goconvey/convey"
)

type stubDeps struct{}

func (stubDeps) Open(context.Context, string) (*session.Machine, string, bool) {
	return nil, "", false
}
func (stubDeps) Drain(context.Context, string) []session.Notification { return nil }
func (stubDeps) GetStats() service.Stats                             { return service.Stats{} }

func TestErrorWrapping(t *testing.T) {
	convey.Convey("Given op-tagged errors", t, func() {
		convey.Convey("When wrapping with a kind", func() {
			err := WrapKind("readUpload", ErrBadRequest, io.ErrUnexpectedEOF)

			convey.Convey("Then both the kind and the cause match", func() {
				convey.So(errors.Is(err, ErrBadRequest), convey.ShouldBeTrue)
				convey.So(errors.Is(err, io.ErrUnexpectedEOF), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldStartWith, "readUpload: bad request")
			})
		})

		convey.Convey("When wrapping nil", func() {
			convey.So(Wrap("op", nil), convey.ShouldBeNil)
			convey.So(WrapKind("op", ErrRender, nil), convey.ShouldBeNil)
		})

		convey.Convey("When the server is built from a bad configuration", func() {
			_, noDeps := NewServer(nil)
			_, shortKey := NewServer(stubDeps{}, WithCSRF([]byte("short"), false))

			convey.Convey("Then the error names the operation and the kind", func() {
				convey.So(errors.Is(noDeps, ErrConfig), convey.ShouldBeTrue)
				convey.So(noDeps.Error(), convey.ShouldEqual, "NewServer: invalid server configuration: dependencies are required")
				convey.So(errors.Is(shortKey, ErrConfig), convey.ShouldBeTrue)
				convey.So(shortKey.Error(), convey.ShouldContainSubstring, "csrf key must be 32 bytes")
			})
		})
	})
}
