package icon

import (
	"testing"

	"github.com/bmevideo/bmevideo/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestGet(t *testing.T) {
	Convey("Given every registered icon", t, func() {
		Convey("It renders for each variant", func() {
			for _, variant := range AvailableVariants() {
				viper.Set(key.IconsVariant, variant)
				for i := range icons {
					So(Get(i), ShouldNotBeEmpty)
				}
			}
		})

		Convey("It returns empty for an unknown variant", func() {
			viper.Set(key.IconsVariant, "")
			So(Get(Play), ShouldBeEmpty)
		})

		Convey("It returns empty for an unregistered icon", func() {
			viper.Set(key.IconsVariant, plain)
			So(Get(Icon(-1)), ShouldBeEmpty)
		})
	})
}

func TestForStatus(t *testing.T) {
	Convey("Given the plain variant", t, func() {
		viper.Set(key.IconsVariant, plain)

		Convey("Statuses map onto their symbols", func() {
			So(ForStatus("playing"), ShouldEqual, ">")
			So(ForStatus("paused"), ShouldEqual, "||")
			So(ForStatus("error"), ShouldEqual, "x")
			So(ForStatus("mystery"), ShouldBeEmpty)
		})
	})
}
