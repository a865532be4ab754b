package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/oxbane/podium/internal/adapters/fanout"
	"github.com/oxbane/podium/internal/app"
	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/internal/domain/ranking"
	"github.com/oxbane/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type clock struct {
	now time.Time
}

func (c *clock) time() time.Time { return c.now }

func startService(t *testing.T, clk *clock) *app.Service {
	t.Helper()
	svc := app.New(app.WithClock(clk.time))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func recv(sub *fanout.Subscription) (model.Notification, bool) {
	select {
	case n, ok := <-sub.Events():
		return n, ok
	case <-time.After(time.Second):
		return model.Notification{}, false
	}
}

func TestServiceScoreLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		clk := &clock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
		svc := startService(t, clk)

		Convey("When a user submits a score of 80 out of 100", func() {
			submitted, err := svc.SubmitScore(ctx, model.Score{
				ActivityID:  "act-1",
				Context:     model.ContextIndividual,
				UserID:      "alice",
				Value:       80,
				MaxPossible: 100,
			})
			So(err, ShouldBeNil)
			So(submitted.Status, ShouldEqual, model.StatusPending)

			Convey("Then it is invisible to rankings while pending", func() {
				clk.now = clk.now.Add(time.Second)
				entries, err := svc.Rank(ctx, ranking.Query{
					Scope: ranking.ScopeIndividual, Period: ranking.PeriodAll,
				})
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})

			Convey("When a moderator approves it", func() {
				sub := svc.Subscribe(model.UserRoom("alice"))
				defer sub.Close()

				approved, err := svc.Approve(ctx, submitted.ID, "admin-1", "")
				So(err, ShouldBeNil)
				So(approved.Status, ShouldEqual, model.StatusApproved)

				Convey("Then the submitter's room hears about it", func() {
					n, ok := recv(sub)
					So(ok, ShouldBeTrue)
					So(n.Type, ShouldEqual, model.EventScoreStatus)
					So(n.Payload["score_id"], ShouldEqual, submitted.ID)
					So(n.Payload["status"], ShouldEqual, string(model.StatusApproved))
				})

				Convey("And the ranking now credits the full amount", func() {
					clk.now = clk.now.Add(time.Second)
					entries, err := svc.Rank(ctx, ranking.Query{
						Scope: ranking.ScopeIndividual, Period: ranking.PeriodAll,
					})
					So(err, ShouldBeNil)
					So(entries, ShouldHaveLength, 1)
					So(entries[0].SubjectID, ShouldEqual, "alice")
					So(entries[0].TotalScore, ShouldEqual, 80)
					So(entries[0].ScoreCount, ShouldEqual, 1)
					So(entries[0].AverageScore, ShouldEqual, 80)
					So(entries[0].Rank, ShouldEqual, 1)
				})

				Convey("And the stored record can be fetched and listed", func() {
					got, err := svc.GetScore(ctx, submitted.ID)
					So(err, ShouldBeNil)
					So(got.Status, ShouldEqual, model.StatusApproved)

					listed, err := svc.ListScores(ctx, model.ScoreFilter{UserID: "alice"})
					So(err, ShouldBeNil)
					So(listed, ShouldHaveLength, 1)
				})
			})
		})
	})
}

func TestServiceTeamScoreAnnouncement(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a subscriber on the team room", t, func() {
		clk := &clock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
		svc := startService(t, clk)

		sub := svc.Subscribe(model.TeamRoom("team-1"))
		defer sub.Close()

		Convey("When a teammate submits a team-context score", func() {
			submitted, err := svc.SubmitScore(ctx, model.Score{
				ActivityID:  "act-1",
				Context:     model.ContextTeam,
				UserID:      "alice",
				TeamID:      "team-1",
				Value:       60,
				MaxPossible: 100,
			})
			So(err, ShouldBeNil)

			Convey("Then the team room sees the submission immediately", func() {
				n, ok := recv(sub)
				So(ok, ShouldBeTrue)
				So(n.Type, ShouldEqual, model.EventScoreNew)
				So(n.Room, ShouldEqual, model.TeamRoom("team-1"))
				So(n.Payload["score_id"], ShouldEqual, submitted.ID)
				So(n.Payload["user_id"], ShouldEqual, "alice")
			})

			Convey("But an individual submission announces nothing", func() {
				_, _ = recv(sub)

				_, err := svc.SubmitScore(ctx, model.Score{
					ActivityID:  "act-1",
					Context:     model.ContextIndividual,
					UserID:      "alice",
					Value:       10,
					MaxPossible: 100,
				})
				So(err, ShouldBeNil)

				select {
				case <-sub.Events():
					So("event for individual submission", ShouldBeEmpty)
				default:
				}
			})
		})
	})
}

func TestServiceAnnounce(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a subscriber on an activity room", t, func() {
		clk := &clock{now: time.Now()}
		svc := startService(t, clk)

		sub := svc.Subscribe(model.ActivityRoom("act-1"))
		defer sub.Close()

		Convey("A collaborator event in the closed set is relayed", func() {
			svc.Announce(ctx, model.Notification{
				Type:    model.EventActivityChange,
				Room:    model.ActivityRoom("act-1"),
				Payload: map[string]any{"activity_id": "act-1"},
			})

			n, ok := recv(sub)
			So(ok, ShouldBeTrue)
			So(n.Type, ShouldEqual, model.EventActivityChange)
		})

		Convey("An unknown event type is silently dropped", func() {
			svc.Announce(ctx, model.Notification{
				Type: model.EventType("activity:deleted"),
				Room: model.ActivityRoom("act-1"),
			})

			select {
			case <-sub.Events():
				So("unknown event delivered", ShouldBeEmpty)
			default:
			}
		})
	})
}

func TestServiceTimers(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with a subscriber on the activity room", t, func() {
		clk := &clock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
		svc := startService(t, clk)

		sub := svc.Subscribe(model.ActivityRoom("act-1"))
		defer sub.Close()

		Convey("When a timer runs past its deadline", func() {
			_, err := svc.StartTimer(ctx, "round-1", "act-1", 5*time.Minute)
			So(err, ShouldBeNil)

			clk.now = clk.now.Add(6 * time.Minute)
			entries := svc.ListTimers(ctx, "act-1")

			Convey("Then the next query reports it stopped and announces the expiry", func() {
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Running, ShouldBeFalse)

				n, ok := recv(sub)
				So(ok, ShouldBeTrue)
				So(n.Type, ShouldEqual, model.EventTimerEnded)
				So(n.Payload["name"], ShouldEqual, "round-1")
			})
		})

		Convey("Stopping a running timer is quiet and idempotent", func() {
			_, err := svc.StartTimer(ctx, "round-2", "act-1", 5*time.Minute)
			So(err, ShouldBeNil)

			stopped, err := svc.StopTimer(ctx, "round-2", "act-1")
			So(err, ShouldBeNil)
			So(stopped.Running, ShouldBeFalse)

			again, err := svc.StopTimer(ctx, "round-2", "act-1")
			So(err, ShouldBeNil)
			So(again.Running, ShouldBeFalse)

			select {
			case <-sub.Events():
				So("event for manual stop", ShouldBeEmpty)
			default:
			}
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := app.New()

		Convey("Start is idempotent", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()
		})

		Convey("Stop before Start is harmless", func() {
			So(svc.Stop, ShouldNotPanic)
		})

		Convey("Stats report the configured shape", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()

			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["shardCount"], ShouldEqual, 8)
			So(stats["totalScores"], ShouldEqual, 0)
		})
	})
}
