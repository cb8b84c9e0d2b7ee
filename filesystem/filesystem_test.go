package filesystem

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})

		Convey("Should accept a custom backend", func() {
			SetFs(afero.NewReadOnlyFs(afero.NewMemMapFs()))
			So(API().Name(), ShouldEqual, "ReadOnlyFilter")
		})

		Convey("GacheFs writes through the active backend", func() {
			SetMemMapFs()
			var g GacheFs
			So(g.MkdirAll("/idx", 0o755), ShouldBeNil)
			f, err := g.OpenFile("/idx/a.json", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			So(err, ShouldBeNil)
			_, err = f.Write([]byte("{}"))
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			exists, err := API().Exists("/idx/a.json")
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)
		})
	})
}
