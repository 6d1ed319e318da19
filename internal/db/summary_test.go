package db

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValveSummary(t *testing.T) {
	cases := []struct {
		name        string
		consumption *float64
		mean        *float64
		want        string
	}{
		{"nothing recorded", nil, nil, ""},
		{"consumption only", floatPtr(2.5), nil, "2.50"},
		{"consumption and mean", floatPtr(2.5), floatPtr(0.03), "2.50 @30.0 µL"},
		{"mean without consumption", nil, floatPtr(0.03), ""},
		{"zero consumption", floatPtr(0), floatPtr(0.03), ""},
		{"rounding", floatPtr(0.456), floatPtr(0.0042), "0.46 @4.2 µL"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := &Session{UserData: UserData{LeftWaterConsumption: c.consumption, LeftValveMean: c.mean}}
			assert.Equal(t, c.want, s.LeftValveSummary())

			s = &Session{UserData: UserData{RightWaterConsumption: c.consumption, RightValveMean: c.mean}}
			assert.Equal(t, c.want, s.RightValveSummary())
		})
	}
}

func TestDisplayPerf(t *testing.T) {
	cases := []struct {
		name string
		v    NullFloat
		want string
	}{
		{"fraction", Float(0.873), "87"},
		{"perfect", Float(1), "100"},
		{"zero", Float(0), "0"},
		{"absent", NullFloat{}, "NA"},
		{"text", NullFloat{Text: "high"}, "NA"},
		{"nan", Float(math.NaN()), "NA"},
		{"inf", Float(math.Inf(1)), "NA"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := &Session{UserData: UserData{LeftPerf: c.v, RightPerf: c.v}}
			assert.Equal(t, c.want, s.DisplayLeftPerf())
			assert.Equal(t, c.want, s.DisplayRightPerf())
		})
	}
}

func TestPercent_ReportsWhyItFailed(t *testing.T) {
	_, err := percent(NullFloat{Text: "high"})
	assert.ErrorIs(t, err, ErrNotNumeric)
	assert.Contains(t, err.Error(), "high")

	_, err = percent(NullFloat{})
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestSessionDisplay(t *testing.T) {
	s := &Session{UserData: UserData{
		LeftWaterConsumption: floatPtr(2.5),
		LeftValveMean:        floatPtr(0.03),
		RightPerf:            Float(0.5),
	}}
	d := s.Display()
	assert.Equal(t, "Unstarted", d.Label)
	assert.Equal(t, "2.50 @30.0 µL", d.LeftValveSummary)
	assert.Equal(t, "", d.RightValveSummary)
	assert.Equal(t, "NA", d.DisplayLeftPerf)
	assert.Equal(t, "50", d.DisplayRightPerf)
}

func TestColumnLabel(t *testing.T) {
	assert.Equal(t, "L water", ColumnLabel("left_valve_summary"))
	assert.Equal(t, "R perf", ColumnLabel("display_right_perf"))
	assert.Equal(t, "StimArm", ColumnLabel("irl_param_stimulus_arm"))
	assert.Equal(t, "Pipe Start", ColumnLabel("user_data_water_pipe_position_start"))
	assert.Equal(t, "logfile", ColumnLabel("logfile"))
}

func TestMeanWaterConsumed(t *testing.T) {
	db := setupTestDB(t)
	m := createTestMouse(t, db, "KM101")
	box := createTestBox(t, db, "CR1")
	other := createTestBox(t, db, "CR2")

	mean, err := db.MeanWaterConsumed(box.ID, 3)
	require.NoError(t, err)
	assert.Nil(t, mean, "no sessions yet")

	day := 24 * time.Hour
	add := func(offset time.Duration, b *Box, left, right *float64) {
		s := testSession(m, b, testStart.Add(offset))
		s.LeftWaterConsumption = left
		s.RightWaterConsumption = right
		require.NoError(t, db.CreateSession(s))
	}
	add(0, box, floatPtr(10), floatPtr(10))       // oldest, outside window
	add(day, box, floatPtr(0.4), floatPtr(0.6))   // 1.0
	add(2*day, box, nil, nil)                     // skipped
	add(3*day, box, floatPtr(1.5), nil)           // 1.5
	add(4*day, box, nil, floatPtr(0.5))           // 0.5
	add(5*day, other, floatPtr(100), floatPtr(1)) // other box

	mean, err = db.MeanWaterConsumed(box.ID, 3)
	require.NoError(t, err)
	require.NotNil(t, mean)
	assert.InDelta(t, 1.0, *mean, 1e-9)

	mean, err = db.MeanWaterConsumed(box.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, mean)
	assert.InDelta(t, (20.0+1.0+1.5+0.5)/4, *mean, 1e-9)
}
