package model_test

import (
	"testing"
	"time"

	"github.com/oxbane/podium/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreValidate(t *testing.T) {
	Convey("Given a well-formed individual score", t, func() {
		sc := model.Score{
			ActivityID:  "act-1",
			Context:     model.ContextIndividual,
			UserID:      "user-1",
			Value:       80,
			MaxPossible: 100,
		}

		Convey("Then it validates", func() {
			So(sc.Validate(), ShouldBeNil)
		})

		Convey("When the value is non-positive", func() {
			sc.Value = 0
			So(sc.Validate(), ShouldWrap, model.ErrValidation)
		})

		Convey("When max_possible is non-positive", func() {
			sc.MaxPossible = -1
			So(sc.Validate(), ShouldWrap, model.ErrValidation)
		})

		Convey("When the value exceeds max_possible", func() {
			sc.Value = 120
			So(sc.Validate(), ShouldWrap, model.ErrValidation)
		})

		Convey("When an individual score carries a team id", func() {
			sc.TeamID = "team-1"
			So(sc.Validate(), ShouldWrap, model.ErrValidation)
		})

		Convey("When the context is unknown", func() {
			sc.Context = "squad"
			So(sc.Validate(), ShouldWrap, model.ErrValidation)
		})
	})

	Convey("Given a team score", t, func() {
		sc := model.Score{
			ActivityID:  "act-1",
			Context:     model.ContextTeam,
			UserID:      "user-1",
			TeamID:      "team-1",
			Value:       50,
			MaxPossible: 50,
		}

		Convey("Then it validates with a team id", func() {
			So(sc.Validate(), ShouldBeNil)
		})

		Convey("When the team id is missing", func() {
			sc.TeamID = ""
			So(sc.Validate(), ShouldWrap, model.ErrValidation)
		})
	})
}

func TestScorePercentage(t *testing.T) {
	Convey("Given a score of 80 out of 100", t, func() {
		sc := model.Score{Value: 80, MaxPossible: 100}

		Convey("Then the percentage is derived, not stored", func() {
			So(sc.Percentage(), ShouldEqual, 0.8)
		})
	})

	Convey("Given a zero max_possible", t, func() {
		sc := model.Score{Value: 10}

		Convey("Then the percentage is zero rather than infinite", func() {
			So(sc.Percentage(), ShouldEqual, 0)
		})
	})
}

func TestScoreFilterMatches(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a score created at a known time", t, func() {
		sc := model.Score{
			ActivityID: "act-1",
			UserID:     "user-1",
			Status:     model.StatusApproved,
			CreatedAt:  base,
		}

		Convey("An empty filter matches everything", func() {
			So(model.ScoreFilter{}.Matches(sc), ShouldBeTrue)
		})

		Convey("A mismatched activity excludes it", func() {
			So(model.ScoreFilter{ActivityID: "act-2"}.Matches(sc), ShouldBeFalse)
		})

		Convey("The date range is half-open", func() {
			So(model.ScoreFilter{From: base}.Matches(sc), ShouldBeTrue)
			So(model.ScoreFilter{To: base}.Matches(sc), ShouldBeFalse)
			So(model.ScoreFilter{From: base.Add(-time.Hour), To: base.Add(time.Hour)}.Matches(sc), ShouldBeTrue)
		})

		Convey("Status filtering is exact", func() {
			So(model.ScoreFilter{Status: model.StatusApproved}.Matches(sc), ShouldBeTrue)
			So(model.ScoreFilter{Status: model.StatusPending}.Matches(sc), ShouldBeFalse)
		})
	})
}

func TestEventTypeClosedSet(t *testing.T) {
	Convey("Given the closed event type set", t, func() {
		known := []model.EventType{
			model.EventScoreStatus, model.EventScoreNew, model.EventTeamAdded,
			model.EventActivityChange, model.EventSubActivityChange,
			model.EventFeedbackNew, model.EventTimerEnded,
		}

		Convey("Every member is valid", func() {
			for _, et := range known {
				So(et.Valid(), ShouldBeTrue)
			}
		})

		Convey("Anything else is not", func() {
			So(model.EventType("score:deleted").Valid(), ShouldBeFalse)
			So(model.EventType("").Valid(), ShouldBeFalse)
		})
	})
}

func TestStatusTransitions(t *testing.T) {
	Convey("Given the status lifecycle", t, func() {
		Convey("Pending is not terminal", func() {
			So(model.StatusPending.Terminal(), ShouldBeFalse)
		})

		Convey("Approved and rejected are terminal", func() {
			So(model.StatusApproved.Terminal(), ShouldBeTrue)
			So(model.StatusRejected.Terminal(), ShouldBeTrue)
		})
	})
}
