package timer_test

import (
	"context"
	"testing"
	"time"

	"github.com/oxbane/podium/internal/adapters/fanout"
	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/internal/domain/timer"
	"github.com/oxbane/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type harness struct {
	reg *timer.Registry
	bus *fanout.Bus
	now time.Time
}

func newHarness() *harness {
	h := &harness{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	h.bus = fanout.NewBus()
	h.reg = timer.New(h.bus, timer.WithClock(func() time.Time { return h.now }))
	return h
}

func recv(sub *fanout.Subscription) (model.Notification, bool) {
	select {
	case n, ok := <-sub.Events():
		return n, ok
	case <-time.After(time.Second):
		return model.Notification{}, false
	}
}

func TestRegistryStart(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty registry", t, func() {
		h := newHarness()
		defer h.bus.Close()

		Convey("Starting a timer records it as running with a computed end time", func() {
			entry, err := h.reg.Start(ctx, "round-1", "act-1", 10*time.Minute)
			So(err, ShouldBeNil)
			So(entry.ID, ShouldNotBeBlank)
			So(entry.Running, ShouldBeTrue)
			So(entry.StartedAt.Equal(h.now), ShouldBeTrue)
			So(entry.EndTime.Equal(h.now.Add(10*time.Minute)), ShouldBeTrue)

			Convey("A second running timer with the same name and activity is refused", func() {
				_, err := h.reg.Start(ctx, "round-1", "act-1", 5*time.Minute)
				So(err, ShouldWrap, model.ErrConflict)
			})

			Convey("The same name under another activity is independent", func() {
				_, err := h.reg.Start(ctx, "round-1", "act-2", 5*time.Minute)
				So(err, ShouldBeNil)
			})
		})

		Convey("Starting with missing or non-positive input is refused", func() {
			_, err := h.reg.Start(ctx, "", "act-1", time.Minute)
			So(err, ShouldWrap, model.ErrValidation)

			_, err = h.reg.Start(ctx, "round-1", "", time.Minute)
			So(err, ShouldWrap, model.ErrValidation)

			_, err = h.reg.Start(ctx, "round-1", "act-1", 0)
			So(err, ShouldWrap, model.ErrValidation)
		})
	})
}

func TestRegistryStop(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running timer and a subscriber on the activity room", t, func() {
		h := newHarness()
		defer h.bus.Close()
		sub := h.bus.Subscribe(model.ActivityRoom("act-1"))
		defer sub.Close()

		_, err := h.reg.Start(ctx, "round-1", "act-1", 10*time.Minute)
		So(err, ShouldBeNil)

		Convey("When it is stopped halfway", func() {
			h.now = h.now.Add(5 * time.Minute)
			stopped, err := h.reg.Stop(ctx, "round-1", "act-1")

			Convey("Then it ends at the stop instant and never announces expiry", func() {
				So(err, ShouldBeNil)
				So(stopped.Running, ShouldBeFalse)
				So(stopped.EndTime.Equal(h.now), ShouldBeTrue)

				h.now = h.now.Add(time.Hour)
				h.reg.List(ctx, "act-1")

				select {
				case <-sub.Events():
					So("expiry after manual stop", ShouldBeEmpty)
				default:
				}
			})

			Convey("And stopping again is an idempotent success", func() {
				again, err := h.reg.Stop(ctx, "round-1", "act-1")
				So(err, ShouldBeNil)
				So(again.Running, ShouldBeFalse)
				So(again.EndTime.Equal(stopped.EndTime), ShouldBeTrue)
			})

			Convey("And the pair can be restarted afterwards", func() {
				_, err := h.reg.Start(ctx, "round-1", "act-1", time.Minute)
				So(err, ShouldBeNil)
			})
		})

		Convey("Stopping an unknown pair is not found", func() {
			_, err := h.reg.Stop(ctx, "round-9", "act-1")
			So(err, ShouldWrap, model.ErrNotFound)
		})
	})
}

func TestRegistryLazyExpiry(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running timer and a subscriber on the activity room", t, func() {
		h := newHarness()
		defer h.bus.Close()
		sub := h.bus.Subscribe(model.ActivityRoom("act-1"))
		defer sub.Close()

		started, err := h.reg.Start(ctx, "round-1", "act-1", 10*time.Minute)
		So(err, ShouldBeNil)

		Convey("Before the deadline nothing happens", func() {
			h.now = h.now.Add(9 * time.Minute)
			entries := h.reg.List(ctx, "act-1")
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Running, ShouldBeTrue)

			select {
			case <-sub.Events():
				So("early expiry", ShouldBeEmpty)
			default:
			}
		})

		Convey("When the deadline passes and the registry is queried", func() {
			h.now = h.now.Add(11 * time.Minute)
			entries := h.reg.List(ctx, "act-1")

			Convey("Then the timer is reported stopped", func() {
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Running, ShouldBeFalse)
			})

			Convey("And timer:ended reaches the activity room once", func() {
				n, ok := recv(sub)
				So(ok, ShouldBeTrue)
				So(n.Type, ShouldEqual, model.EventTimerEnded)
				So(n.Room, ShouldEqual, model.ActivityRoom("act-1"))
				So(n.Payload["name"], ShouldEqual, "round-1")
				endTime, isTime := n.Payload["end_time"].(time.Time)
				So(isTime, ShouldBeTrue)
				So(endTime.Equal(started.EndTime), ShouldBeTrue)
			})

			Convey("And repeated queries never publish it again", func() {
				_, _ = recv(sub)
				h.reg.List(ctx, "act-1")
				h.reg.List(ctx, "")
				_, _ = h.reg.Stop(ctx, "round-1", "act-1")

				select {
				case <-sub.Events():
					So("duplicate expiry event", ShouldBeEmpty)
				default:
				}
			})
		})
	})
}

func TestRegistryList(t *testing.T) {
	ctx := context.Background()

	Convey("Given timers across two activities", t, func() {
		h := newHarness()
		defer h.bus.Close()

		_, err := h.reg.Start(ctx, "round-1", "act-1", time.Hour)
		So(err, ShouldBeNil)
		h.now = h.now.Add(time.Minute)
		second, err := h.reg.Start(ctx, "round-2", "act-1", time.Hour)
		So(err, ShouldBeNil)
		h.now = h.now.Add(time.Minute)
		_, err = h.reg.Start(ctx, "round-1", "act-2", time.Hour)
		So(err, ShouldBeNil)

		Convey("Listing one activity returns its timers, newest first", func() {
			entries := h.reg.List(ctx, "act-1")
			So(entries, ShouldHaveLength, 2)
			So(entries[0].ID, ShouldEqual, second.ID)
		})

		Convey("Listing with no activity returns everything", func() {
			So(h.reg.List(ctx, ""), ShouldHaveLength, 3)
		})
	})
}
