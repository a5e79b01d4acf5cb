package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/tally/internal/adapters/pipeline"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func waitForJob(svc *service.Service, id string) types.JobStatus {
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, _ := svc.JobStatus(context.Background(), id)
		if st.State == types.JobDone || st.State == types.JobFailed || time.Now().After(deadline) {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServiceIntegration_Analysis(t *testing.T) {
	Convey("Given a running service backed by a pipeline", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var calls atomic.Int32
		fetcher := pipeline.FetcherFunc(func(_ context.Context, sessionID string) (model.Batch, error) {
			calls.Add(1)
			if sessionID == "broken" {
				return model.Batch{}, &model.PipelineError{SessionID: sessionID, Err: errors.New("transcription failed")}
			}
			return batch(sessionID,
				rec("s-1", 88, 0.92),
				rec("s-2", 74, 0.65),
			), nil
		})

		svc := service.New(service.WithFetcher(fetcher), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When analysis is requested", func() {
			st, err := svc.RequestAnalysis(ctx, "wk5", "")
			So(err, ShouldBeNil)
			So(st.JobID, ShouldNotBeEmpty)
			So(st.State, ShouldEqual, types.JobQueued)

			Convey("Then the batch is flagged and loaded", func() {
				final := waitForJob(svc, st.JobID)
				So(final.State, ShouldEqual, types.JobDone)
				So(final.Finished, ShouldNotBeNil)

				views, err := svc.Records(ctx, "wk5")
				So(err, ShouldBeNil)
				So(len(views), ShouldEqual, 2)
				So(views[1].Flagged, ShouldBeTrue)
			})
		})

		Convey("When the same job id is requested twice", func() {
			_, err := svc.RequestAnalysis(ctx, "wk6", "job-1")
			So(err, ShouldBeNil)
			waitForJob(svc, "job-1")
			_, err = svc.RequestAnalysis(ctx, "wk6", "job-1")

			Convey("Then the repeat is refused and the pipeline called once", func() {
				So(errors.Is(err, service.ErrDuplicateJob), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the pipeline fails", func() {
			st, err := svc.RequestAnalysis(ctx, "broken", "")
			So(err, ShouldBeNil)

			Convey("Then the job fails without retry and nothing is loaded", func() {
				final := waitForJob(svc, st.JobID)
				So(final.State, ShouldEqual, types.JobFailed)
				So(final.Error, ShouldContainSubstring, "transcription failed")
				So(calls.Load(), ShouldEqual, 1)
				_, err := svc.Records(ctx, "broken")
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the session id is blank", func() {
			_, err := svc.RequestAnalysis(ctx, " ", "")

			Convey("Then it is a validation error", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestServiceIntegration_JobRetention(t *testing.T) {
	Convey("Given a service that remembers a single job id", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fetcher := pipeline.FetcherFunc(func(_ context.Context, sessionID string) (model.Batch, error) {
			return batch(sessionID, rec("s-1", 88, 0.92)), nil
		})
		svc := service.New(
			service.WithFetcher(fetcher),
			service.WithWorkerCount(1),
			service.WithDedupeSize(1),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a second job is requested", func() {
			_, err := svc.RequestAnalysis(ctx, "wk7", "job-a")
			So(err, ShouldBeNil)
			waitForJob(svc, "job-a")
			_, err = svc.RequestAnalysis(ctx, "wk8", "job-b")
			So(err, ShouldBeNil)

			Convey("Then the evicted job's status is dropped with it", func() {
				_, ok := svc.JobStatus(ctx, "job-a")
				So(ok, ShouldBeFalse)
				_, ok = svc.JobStatus(ctx, "job-b")
				So(ok, ShouldBeTrue)
				So(svc.GetStats()["jobsTracked"], ShouldEqual, 1)
			})
		})
	})
}
