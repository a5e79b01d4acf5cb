package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/tally/internal/adapters/http/api"
	"github.com/okian/tally/internal/adapters/pipeline"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const batchBody = `{
  "session": {"course_id": "PHIL-210", "name": "Week 3 Seminar", "duration_minutes": 50},
  "records": [
    {"student_id": "A", "name": "Emma Smith", "event_count": 5, "ai_score": 82, "confidence": 0.92,
     "quality": "High", "frequency": "Optimal",
     "contributions": [{"type": "Analytical Question", "text": "Why?", "timestamp_seconds": 120, "confidence": 0.9}]},
    {"student_id": "B", "name": "Liam Johnson", "event_count": 3, "ai_score": 74, "confidence": 0.65,
     "quality": "Medium", "frequency": "Low", "contributions": []}
  ]
}`

func newServer(opts ...service.Option) (*httptest.Server, *service.Service) {
	svc := service.New(opts...)
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return httptest.NewServer(mux), svc
}

func do(srv *httptest.Server, method, path, body string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	So(err, ShouldBeNil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestAPI_Sessions(t *testing.T) {
	Convey("Given a server with a loaded session", t, func() {
		srv, _ := newServer()
		defer srv.Close()

		resp, body := do(srv, http.MethodPut, "/sessions/wk3/records", batchBody)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)
		So(body["review_needed"], ShouldEqual, true)

		Convey("When listing records", func() {
			resp, body := do(srv, http.MethodGet, "/sessions/wk3/records", "")

			Convey("Then they come back in order with derived fields", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				records := body["records"].([]any)
				So(len(records), ShouldEqual, 2)
				first := records[0].(map[string]any)
				second := records[1].(map[string]any)
				So(first["student_id"], ShouldEqual, "A")
				So(first["score_band"], ShouldEqual, "medium")
				So(first["state"], ShouldEqual, "viewing")
				So(second["flagged"], ShouldEqual, true)
				So(second["flag_reason"], ShouldEqual, "Low confidence in speaker identification")
			})
		})

		Convey("When reading the summary", func() {
			_, body := do(srv, http.MethodGet, "/sessions/wk3/summary", "")

			Convey("Then it is computed from the records", func() {
				s := body["summary"].(map[string]any)
				So(s["students_analyzed"], ShouldEqual, 2.0)
				So(s["total_events"], ShouldEqual, 8.0)
				So(s["flagged_count"], ShouldEqual, 1.0)
				session := body["session"].(map[string]any)
				So(session["id"], ShouldEqual, "wk3")
			})
		})

		Convey("When editing a score", func() {
			resp, body := do(srv, http.MethodPost, "/sessions/wk3/records/A/edit", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["slot"].(map[string]any)["working_value"], ShouldEqual, "82")

			Convey("And committing an invalid value", func() {
				do(srv, http.MethodPut, "/edit/value", `{"value": "abc"}`)
				resp, body := do(srv, http.MethodPost, "/sessions/wk3/records/A/commit", "")

				Convey("Then it is a 400 and the edit remains", func() {
					So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
					So(body["code"], ShouldEqual, "validation_error")
					_, cur := do(srv, http.MethodGet, "/edit", "")
					So(cur["editing"], ShouldEqual, true)
				})
			})

			Convey("And committing a valid value", func() {
				do(srv, http.MethodPut, "/edit/value", `{"value": " 78 "}`)
				resp, body := do(srv, http.MethodPost, "/sessions/wk3/records/A/commit", "")

				Convey("Then the approved score is stored", func() {
					So(resp.StatusCode, ShouldEqual, http.StatusOK)
					So(body["approved_score"], ShouldEqual, 78.0)
					So(body["ai_score"], ShouldEqual, 82.0)
					So(body["effective_score"], ShouldEqual, 78.0)
				})
			})

			Convey("And cancelling", func() {
				resp, _ := do(srv, http.MethodDelete, "/sessions/wk3/records/A/edit", "")

				Convey("Then nothing is in flight", func() {
					So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
					_, cur := do(srv, http.MethodGet, "/edit", "")
					So(cur["editing"], ShouldEqual, false)
				})
			})
		})

		Convey("When committing without an edit", func() {
			resp, body := do(srv, http.MethodPost, "/sessions/wk3/records/B/commit", "")

			Convey("Then it is a conflict", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "not_editing")
			})
		})

		Convey("When approving all", func() {
			_, body := do(srv, http.MethodPost, "/sessions/wk3/approve-all", "")

			Convey("Then every record is approved", func() {
				So(body["approved"], ShouldEqual, 2.0)
			})
		})

		Convey("When exporting", func() {
			resp, _ := do(srv, http.MethodGet, "/sessions/wk3/export.csv", "")

			Convey("Then a CSV attachment is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldStartWith, "text/csv")
				So(resp.Header.Get("Content-Disposition"), ShouldContainSubstring, "wk3.csv")
			})
		})

		Convey("When discarding", func() {
			resp, _ := do(srv, http.MethodDelete, "/sessions/wk3", "")
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)

			Convey("Then the session is gone", func() {
				resp, body := do(srv, http.MethodGet, "/sessions/wk3/records", "")
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(body["code"], ShouldEqual, "not_found")
			})
		})
	})
}

func getList(srv *httptest.Server, path string) []map[string]any {
	resp, err := srv.Client().Get(srv.URL + path)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	So(resp.StatusCode, ShouldEqual, http.StatusOK)
	var out []map[string]any
	So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
	return out
}

func TestAPI_Students(t *testing.T) {
	Convey("Given sessions of two courses", t, func() {
		srv, _ := newServer()
		defer srv.Close()

		resp, _ := do(srv, http.MethodPut, "/sessions/wk3/records", batchBody)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)
		other := strings.Replace(batchBody, "PHIL-210", "MGT-401", 1)
		other = strings.Replace(other, `"ai_score": 82`, `"ai_score": 70`, 1)
		resp, _ = do(srv, http.MethodPut, "/sessions/wk4/records", other)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		Convey("When listing sessions by course", func() {
			phil := getList(srv, "/sessions?course=PHIL-210")
			all := getList(srv, "/sessions")

			Convey("Then the filter applies", func() {
				So(len(phil), ShouldEqual, 1)
				So(phil[0]["session"].(map[string]any)["id"], ShouldEqual, "wk3")
				So(len(all), ShouldEqual, 2)
			})
		})

		Convey("When reading a student's report", func() {
			resp, body := do(srv, http.MethodGet, "/students/A", "")

			Convey("Then it rolls up every session", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["name"], ShouldEqual, "Emma Smith")
				So(body["sessions_attended"], ShouldEqual, 2.0)
				So(body["overall_score"], ShouldEqual, 76.0)
				So(body["total_contributions"], ShouldEqual, 10.0)
				So(body["trend"], ShouldEqual, "concerning")
			})
		})

		Convey("When reading a student's report for one course", func() {
			_, body := do(srv, http.MethodGet, "/students/A?course=MGT-401", "")

			Convey("Then only that course counts", func() {
				So(body["sessions_attended"], ShouldEqual, 1.0)
				So(body["overall_score"], ShouldEqual, 70.0)
			})
		})

		Convey("When the student is unknown", func() {
			resp, body := do(srv, http.MethodGet, "/students/Z", "")

			Convey("Then it is a 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(body["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When approve-all lands during an edit", func() {
			do(srv, http.MethodPost, "/sessions/wk3/records/A/edit", "")
			do(srv, http.MethodPost, "/sessions/wk3/approve-all", "")
			resp, body := do(srv, http.MethodPost, "/sessions/wk3/records/A/commit", "")

			Convey("Then the commit is a version conflict and the edit is closed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "version_conflict")
				_, cur := do(srv, http.MethodGet, "/edit", "")
				So(cur["editing"], ShouldEqual, false)
			})
		})
	})
}

func TestAPI_LoadRejections(t *testing.T) {
	Convey("Given a server", t, func() {
		srv, _ := newServer()
		defer srv.Close()

		Convey("When a record has an unknown quality tag", func() {
			body := strings.Replace(batchBody, `"quality": "High"`, `"quality": "Stellar"`, 1)
			resp, out := do(srv, http.MethodPut, "/sessions/wk3/records", body)

			Convey("Then it is a 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(out["code"], ShouldEqual, "validation_error")
			})
		})

		Convey("When student ids repeat", func() {
			body := strings.Replace(batchBody, `"student_id": "B"`, `"student_id": "A"`, 1)
			resp, out := do(srv, http.MethodPut, "/sessions/wk3/records", body)

			Convey("Then the batch is rejected with a field message", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(out["message"], ShouldContainSubstring, "duplicate student_id")
			})
		})

		Convey("When the body names another session", func() {
			resp, _ := do(srv, http.MethodPut, "/sessions/wk3/records", `{"session": {"id": "wk4"}, "records": []}`)

			Convey("Then it is a 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAPI_Analysis(t *testing.T) {
	Convey("Given a server without a pipeline", t, func() {
		srv, svc := newServer()
		defer srv.Close()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then analysis requests are unavailable", func() {
			resp, body := do(srv, http.MethodPost, "/sessions/wk3/analysis", "")
			So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
			So(body["code"], ShouldEqual, "unavailable")
		})
	})

	Convey("Given a server with a failing pipeline", t, func() {
		fetcher := pipeline.FetcherFunc(func(_ context.Context, id string) (model.Batch, error) {
			return model.Batch{}, &model.PipelineError{SessionID: id, Err: errors.New("down")}
		})
		srv, svc := newServer(service.WithFetcher(fetcher))
		defer srv.Close()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When a job is requested twice with the same id", func() {
			first, body := do(srv, http.MethodPost, "/sessions/wk3/analysis", `{"job_id": "j-1"}`)
			second, _ := do(srv, http.MethodPost, "/sessions/wk3/analysis", `{"job_id": "j-1"}`)

			Convey("Then the first is accepted and the second answers with it", func() {
				So(first.StatusCode, ShouldEqual, http.StatusAccepted)
				So(body["job_id"], ShouldEqual, "j-1")
				So(second.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When asking for an unknown job", func() {
			resp, _ := do(srv, http.MethodGet, "/jobs/missing", "")

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAPI_Health(t *testing.T) {
	Convey("Given a server", t, func() {
		srv, _ := newServer()
		defer srv.Close()

		Convey("Then healthz, stats and metrics answer", func() {
			resp, body := do(srv, http.MethodGet, "/healthz", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")

			resp, body = do(srv, http.MethodGet, "/stats", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body, ShouldContainKey, "sessions")

			resp, _ = do(srv, http.MethodGet, "/metrics", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped api errors", t, func() {
		cause := model.NewValidationError("value", "is required")

		Convey("Then kinds and causes are reachable", func() {
			So(errors.Is(api.WrapKind("op", api.ErrBadRequest, cause), api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(api.WrapKind("op", api.ErrBadRequest, cause), model.ErrValidation), ShouldBeTrue)
			So(errors.Is(api.NewKind("op", api.ErrBackpressure), api.ErrBackpressure), ShouldBeTrue)
			So(api.Wrap("op", nil), ShouldBeNil)
			So(api.Wrap("op", cause).Error(), ShouldEqual, "op: value: is required")
		})
	})
}
