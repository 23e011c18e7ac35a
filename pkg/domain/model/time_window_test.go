package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
)

func TestTimeWindow_Contains(t *testing.T) {
	tests := []struct {
		name   string
		window model.TimeWindow
		now    string
		want   bool
	}{
		{"inside day window", model.TimeWindow{Start: "0900", End: "1759"}, "1000", true},
		{"at start", model.TimeWindow{Start: "0900", End: "1759"}, "0900", true},
		{"at end", model.TimeWindow{Start: "0900", End: "1759"}, "1759", true},
		{"before start", model.TimeWindow{Start: "0900", End: "1759"}, "0859", false},
		{"after end", model.TimeWindow{Start: "0900", End: "1759"}, "1800", false},
		{"night window never matches after midnight", model.TimeWindow{Start: "1800", End: "0859"}, "0100", false},
		{"night window never matches before midnight", model.TimeWindow{Start: "1800", End: "0859"}, "2300", false},
		{"unset window", model.TimeWindow{}, "1000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.window.Contains(tt.now)).Equal(tt.want)
		})
	}
}

func TestTimeWindow_ContainsMatchesStringOrder(t *testing.T) {
	values := []string{"0000", "0859", "0900", "1200", "1759", "1800", "2359"}
	for _, s := range values {
		for _, e := range values {
			for _, now := range values {
				w := model.TimeWindow{Start: s, End: e}
				gt.Value(t, w.Contains(now)).Equal(s <= now && now <= e)
			}
		}
	}
}

func TestTimeWindow_ContainsWrapped(t *testing.T) {
	night := model.TimeWindow{Start: "1800", End: "0859"}
	gt.Bool(t, night.ContainsWrapped("2300")).True()
	gt.Bool(t, night.ContainsWrapped("0100")).True()
	gt.Bool(t, night.ContainsWrapped("1800")).True()
	gt.Bool(t, night.ContainsWrapped("0859")).True()
	gt.Bool(t, night.ContainsWrapped("1200")).False()

	day := model.TimeWindow{Start: "0900", End: "1759"}
	gt.Bool(t, day.ContainsWrapped("1000")).True()
	gt.Bool(t, day.ContainsWrapped("2000")).False()
}

func TestFormatHHMM(t *testing.T) {
	gt.Value(t, model.FormatHHMM("0900")).Equal("09:00")
	gt.Value(t, model.FormatHHMM("1759")).Equal("17:59")
	gt.Value(t, model.FormatHHMM("900")).Equal("900")
	gt.Value(t, model.FormatHHMM("09:00")).Equal("09:00")
	gt.Value(t, model.FormatHHMM("")).Equal("")
}

func TestTimeWindow_Format(t *testing.T) {
	gt.Value(t, model.TimeWindow{Start: "0900", End: "1759"}.Format()).Equal("09:00 - 17:59")
	gt.Value(t, model.TimeWindow{Start: "0900"}.Format()).Equal("09:00 - unset")
}

func TestClockHHMM(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	at := time.Date(2026, 1, 2, 0, 5, 0, 0, time.UTC)

	gt.Value(t, model.ClockHHMM(at, time.UTC)).Equal("0005")
	gt.Value(t, model.ClockHHMM(at, tokyo)).Equal("0905")
}

func TestValidateHHMM(t *testing.T) {
	for _, ok := range []string{"0000", "0900", "2359"} {
		gt.NoError(t, model.ValidateHHMM(ok))
	}
	for _, bad := range []string{"", "900", "09:00", "2400", "1260", "ab12"} {
		gt.Error(t, model.ValidateHHMM(bad)).Is(model.ErrInvalidTime)
	}
}
