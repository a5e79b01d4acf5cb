package model_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/tally/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEffectiveScore(t *testing.T) {
	Convey("Given a record with an AI score", t, func() {
		rec := model.ParticipationRecord{StudentID: "s-1", AIScore: 82}

		Convey("Then the effective score is the AI score until overridden", func() {
			So(rec.EffectiveScore(), ShouldEqual, 82)
			So(rec.Overridden(), ShouldBeFalse)

			approved := 78
			rec.ApprovedScore = &approved
			So(rec.EffectiveScore(), ShouldEqual, 78)
			So(rec.AIScore, ShouldEqual, 82)
			So(rec.Overridden(), ShouldBeTrue)
		})

		Convey("Then an override of zero still wins", func() {
			zero := 0
			rec.ApprovedScore = &zero
			So(rec.EffectiveScore(), ShouldEqual, 0)
		})
	})
}

func TestClone(t *testing.T) {
	Convey("Given a record with an override and contributions", t, func() {
		approved := 70
		rec := model.ParticipationRecord{
			StudentID:     "s-1",
			ApprovedScore: &approved,
			Contributions: []model.Contribution{{Type: model.ContributionOther, Text: "hi"}},
		}

		Convey("When the clone is mutated", func() {
			c := rec.Clone()
			*c.ApprovedScore = 10
			c.Contributions[0].Text = "changed"

			Convey("Then the original is untouched", func() {
				So(*rec.ApprovedScore, ShouldEqual, 70)
				So(rec.Contributions[0].Text, ShouldEqual, "hi")
			})
		})
	})
}

func TestTagsJSON(t *testing.T) {
	Convey("Given a record encoded as JSON", t, func() {
		rec := model.ParticipationRecord{
			StudentID: "s-1", AIScore: 85, Confidence: 0.92,
			Quality: model.QualityHigh, Frequency: model.FrequencyOptimal,
			Contributions: []model.Contribution{
				{Type: model.ContributionChallenge, Text: "I disagree", TimestampSeconds: 2712, Confidence: 0.82},
			},
		}
		data, err := json.Marshal(rec)
		So(err, ShouldBeNil)

		Convey("Then tags use their display names", func() {
			s := string(data)
			So(s, ShouldContainSubstring, `"quality":"High"`)
			So(s, ShouldContainSubstring, `"frequency":"Optimal"`)
			So(s, ShouldContainSubstring, `"type":"Challenge/Disagreement"`)
			So(s, ShouldNotContainSubstring, "approved_score")
		})

		Convey("Then decoding gives the same record back", func() {
			var back model.ParticipationRecord
			So(json.Unmarshal(data, &back), ShouldBeNil)
			So(back, ShouldResemble, rec)
		})
	})

	Convey("Given unknown tag names", t, func() {
		var q model.Quality
		var f model.Frequency
		var c model.ContributionType

		Convey("Then decoding fails", func() {
			So(json.Unmarshal([]byte(`"Stellar"`), &q), ShouldNotBeNil)
			So(json.Unmarshal([]byte(`"Optimal"`), &q), ShouldNotBeNil)
			So(json.Unmarshal([]byte(`"Medium"`), &f), ShouldNotBeNil)
			So(json.Unmarshal([]byte(`"Rant"`), &c), ShouldNotBeNil)
		})

		Convey("Then the zero value cannot be encoded", func() {
			_, err := json.Marshal(model.QualityUnknown)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseTags(t *testing.T) {
	for _, name := range []string{"Low", "Medium", "High"} {
		q, err := model.ParseQuality(name)
		if err != nil || q.String() != name {
			t.Fatalf("ParseQuality(%q) = %v, %v", name, q, err)
		}
	}
	for _, name := range []string{"Low", "Optimal", "High"} {
		f, err := model.ParseFrequency(name)
		if err != nil || f.String() != name {
			t.Fatalf("ParseFrequency(%q) = %v, %v", name, f, err)
		}
	}
	for _, name := range []string{
		"Analytical Question", "Building on Others", "New Insight",
		"Challenge/Disagreement", "Clarifying Question", "Other",
	} {
		c, err := model.ParseContributionType(name)
		if err != nil || c.String() != name {
			t.Fatalf("ParseContributionType(%q) = %v, %v", name, c, err)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	Convey("Given the concrete error types", t, func() {
		verr := model.NewValidationError("records[0].ai_score", "must be <= 100")
		nf := &model.NotFoundError{SessionID: "wk3", StudentID: "s-9"}
		perr := &model.PipelineError{SessionID: "wk3", Err: errors.New("timeout")}

		Convey("Then each matches its kind through wrapping", func() {
			So(errors.Is(fmt.Errorf("load: %w", verr), model.ErrValidation), ShouldBeTrue)
			So(errors.Is(fmt.Errorf("get: %w", nf), model.ErrNotFound), ShouldBeTrue)
			So(errors.Is(perr, model.ErrPipeline), ShouldBeTrue)
			So(errors.Is(verr, model.ErrNotFound), ShouldBeFalse)
		})

		Convey("Then messages name the offending input", func() {
			So(verr.Error(), ShouldEqual, "records[0].ai_score: must be <= 100")
			So(nf.Error(), ShouldContainSubstring, `"s-9"`)
			So((&model.NotFoundError{SessionID: "wk3"}).Error(), ShouldEqual, `session "wk3" not found`)
			So((&model.NotFoundError{StudentID: "s-9"}).Error(), ShouldEqual, `student "s-9" not found in any session`)
			So(errors.Unwrap(perr).Error(), ShouldEqual, "timeout")
		})
	})
}
