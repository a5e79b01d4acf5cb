package seed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/tally/internal/adapters/http/api"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/flagging"
	"github.com/okian/tally/internal/seed"
	"github.com/okian/tally/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running review server", t, func() {
		svc := service.New()
		mux := http.NewServeMux()
		api.NewServer(svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		ctx := context.Background()

		Convey("When the demo roster is seeded", func() {
			err := seed.Run(ctx, &seed.Config{BaseURL: srv.URL, SessionID: "demo", Timeout: time.Second, Verbose: true})
			So(err, ShouldBeNil)

			Convey("Then the server flags it by its own policy", func() {
				views, err := svc.Records(ctx, "demo")
				So(err, ShouldBeNil)
				So(len(views), ShouldEqual, 3)
				So(views[0].Flagged, ShouldBeFalse)
				So(views[1].FlagReason, ShouldEqual, flagging.ReasonOverParticipation)
				So(views[2].FlagReason, ShouldEqual, flagging.ReasonLowConfidence)
				So(views[0].Contributions[0].TimestampSeconds, ShouldEqual, 754)
			})
		})

		Convey("When a file batch without a session id is seeded", func() {
			path := filepath.Join(t.TempDir(), "batch.json")
			body := `{"session": {"name": "From file"}, "records": [
			  {"student_id": "x", "event_count": 1, "ai_score": 70, "confidence": 0.9,
			   "quality": "Low", "frequency": "Low", "contributions": []}]}`
			So(os.WriteFile(path, []byte(body), 0o600), ShouldBeNil)

			err := seed.Run(ctx, &seed.Config{BaseURL: srv.URL, SessionID: "file", File: path, Timeout: time.Second})

			Convey("Then it lands in the configured session", func() {
				So(err, ShouldBeNil)
				rep, err := svc.Summary(ctx, "file")
				So(err, ShouldBeNil)
				So(rep.Session.Name, ShouldEqual, "From file")
				So(rep.Summary.StudentsAnalyzed, ShouldEqual, 1)
			})
		})

		Convey("When the server rejects the request", func() {
			err := seed.Run(ctx, &seed.Config{BaseURL: srv.URL, SessionID: "x", Analyze: true, Timeout: time.Second})

			Convey("Then the status is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "status 503")
			})
		})
	})

	Convey("Given no base url", t, func() {
		So(seed.Run(context.Background(), &seed.Config{}), ShouldEqual, seed.ErrNoBaseURL)
	})
}
