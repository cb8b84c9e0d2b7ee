package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		reg := prometheus.NewRegistry()

		Convey("Register should accept every collector once", func() {
			So(func() { Register(reg) }, ShouldNotPanic)
			So(func() { Register(reg) }, ShouldPanic)
		})

		Convey("Registered counters should be gathered", func() {
			Register(reg)
			before := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("hit"))
			CacheLookupsTotal.WithLabelValues("hit").Inc()
			So(testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("hit")), ShouldEqual, before+1)

			families, err := reg.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
