package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/key"
	"github.com/bmevideo/bmevideo/where"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)
		So(Setup(), ShouldBeNil)

		Convey("Nothing is enabled", func() {
			So(Enabled(), ShouldBeFalse)
		})

		Convey("With still returns a usable entry", func() {
			So(func() { With(Fields{"key": "abc"}).Info("discarded") }, ShouldNotPanic)
		})
	})

	Convey("Given logging is enabled", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "debug")
		defer viper.Set(key.LogsWrite, false)
		So(Setup(), ShouldBeNil)

		Convey("A daily log file is written", func() {
			Info("hello")
			path := filepath.Join(where.Logs(), time.Now().Format("2006-01-02")+".log")
			So(lo.Must(filesystem.API().Exists(path)), ShouldBeTrue)

			contents := lo.Must(filesystem.API().ReadFile(path))
			So(string(contents), ShouldContainSubstring, "hello")
		})
	})
}
