package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxbane/podium/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	ctx := context.Background()

	Convey("Given no file and no env overrides", t, func() {
		cfg, err := config.Load(ctx)

		Convey("Then the defaults apply", func() {
			So(err, ShouldBeNil)
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.ShardCount, ShouldEqual, 8)
			So(cfg.SubscriberBuffer, ShouldEqual, 64)
			So(cfg.MaxRankingLimit, ShouldEqual, 100)
			So(cfg.StoreTimeoutMS, ShouldEqual, 2000)
			So(cfg.ModeratorRoles, ShouldResemble, []string{"admin", "moderator"})
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	ctx := context.Background()

	t.Setenv("PODIUM_ADDR", ":8181")
	t.Setenv("PODIUM_SHARD_COUNT", "16")
	t.Setenv("PODIUM_LOG_LEVEL", "debug")

	Convey("Given PODIUM_-prefixed env vars", t, func() {
		cfg, err := config.Load(ctx)

		Convey("Then they override the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8181")
			So(cfg.ShardCount, ShouldEqual, 16)
			So(cfg.LogLevel, ShouldEqual, "debug")
		})

		Convey("And untouched fields keep their defaults", func() {
			So(cfg.SubscriberBuffer, ShouldEqual, 64)
			So(cfg.StoreTimeoutMS, ShouldEqual, 2000)
		})
	})
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "podium.yaml")
	body := []byte("addr: \":7070\"\nsubscriber_buffer: 32\nmoderator_roles:\n  - admin\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PODIUM_CONFIG", path)

	Convey("Given a YAML file referenced by PODIUM_CONFIG", t, func() {
		cfg, err := config.Load(ctx)

		Convey("Then the file overrides the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.SubscriberBuffer, ShouldEqual, 32)
			So(cfg.ModeratorRoles, ShouldResemble, []string{"admin"})
		})
	})

	Convey("Given env vars on top of the file", t, func() {
		t.Setenv("PODIUM_ADDR", ":6060")
		cfg, err := config.Load(ctx)

		Convey("Then env wins over the file", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.SubscriberBuffer, ShouldEqual, 32)
		})
	})

	Convey("Given a missing file path", t, func() {
		t.Setenv("PODIUM_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := config.Load(ctx)

		Convey("Then loading fails with a load error", func() {
			So(err, ShouldWrap, config.ErrLoadConfig)
		})
	})
}

func TestLoadValidation(t *testing.T) {
	ctx := context.Background()

	Convey("Given an out-of-range shard count", t, func() {
		t.Setenv("PODIUM_SHARD_COUNT", "0")
		_, err := config.Load(ctx)

		Convey("Then loading fails with an invalid-config error", func() {
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})

	Convey("Given an empty listen address", t, func() {
		t.Setenv("PODIUM_ADDR", "")
		_, err := config.Load(ctx)

		Convey("Then loading fails with an invalid-config error", func() {
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
