package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/tally/internal/domain/flagging"
	"github.com/okian/tally/internal/domain/model"
	types "github.com/okian/tally/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecordView(t *testing.T) {
	Convey("Given an overridden record", t, func() {
		approved := 88
		rec := model.ParticipationRecord{
			StudentID: "s-1", AIScore: 60, ApprovedScore: &approved, Confidence: 0.62,
			Quality: model.QualityMedium, Frequency: model.FrequencyLow,
		}

		Convey("When viewed", func() {
			v := types.NewRecordView(rec, "editing")

			Convey("Then bands follow the effective score and confidence", func() {
				So(v.EffectiveScore, ShouldEqual, 88)
				So(v.ScoreBand, ShouldEqual, flagging.BandHigh)
				So(v.ConfidenceBand, ShouldEqual, flagging.BandMedium)
				So(v.State, ShouldEqual, "editing")
			})

			Convey("Then the JSON is flat", func() {
				data, err := json.Marshal(v)
				So(err, ShouldBeNil)
				var m map[string]any
				So(json.Unmarshal(data, &m), ShouldBeNil)
				So(m["student_id"], ShouldEqual, "s-1")
				So(m["effective_score"], ShouldEqual, 88.0)
				So(m["score_band"], ShouldEqual, "high")
			})
		})
	})
}

func TestSessionReport(t *testing.T) {
	Convey("Given a session without flags", t, func() {
		info := model.SessionInfo{ID: "wk3"}
		records := []model.ParticipationRecord{{StudentID: "a", AIScore: 72, Confidence: 0.9, EventCount: 3}}

		Convey("Then the report is ready", func() {
			r := types.NewSessionReport(info, records)
			So(r.Session.ID, ShouldEqual, "wk3")
			So(r.Summary.StudentsAnalyzed, ShouldEqual, 1)
			So(r.Distribution.Medium, ShouldEqual, 1)
			So(r.ReviewNeeded, ShouldBeFalse)
		})
	})
}
