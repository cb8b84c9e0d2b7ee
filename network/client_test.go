package network

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bmevideo/bmevideo/constant"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFetch(t *testing.T) {
	Convey("Given a media server", t, func() {
		var agent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agent = r.UserAgent()
			if r.URL.Path == "/missing" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte("frames"))
		}))
		defer server.Close()

		fetcher := NewFetcher(&http.Client{Transport: &userAgent{next: http.DefaultTransport}})

		Convey("Fetch should stream the body", func() {
			body, _, err := fetcher.Fetch(context.Background(), server.URL+"/clip.mp4")
			So(err, ShouldBeNil)
			defer body.Close()

			So(string(lo.Must(io.ReadAll(body))), ShouldEqual, "frames")
			So(agent, ShouldEqual, constant.UserAgent)
		})

		Convey("Fetch should reject non-2xx responses", func() {
			_, _, err := fetcher.Fetch(context.Background(), server.URL+"/missing")
			So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
		})

		Convey("Fetch should honour a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, _, err := fetcher.Fetch(ctx, server.URL+"/clip.mp4")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestProgressWriter(t *testing.T) {
	Convey("Given a progress writer", t, func() {
		var buf bytes.Buffer
		pw := NewProgressWriter(&buf)

		Convey("It counts every byte written", func() {
			_, _ = pw.Write([]byte("abc"))
			_, _ = pw.Write([]byte("de"))
			So(pw.Written(), ShouldEqual, 5)
			So(buf.String(), ShouldEqual, "abcde")
		})
	})
}
