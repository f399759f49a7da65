package stove

import (
	"testing"

	"stovelink/internal/logger"
	"stovelink/internal/models"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }
func bp(v bool) *bool       { return &v }

func newTestStove() *Stove {
	return New("12345", "Living Room", 15, logger.Get(logger.ErrorLevel))
}

// baseSnapshot builds a healthy online snapshot: powered on, auto mode,
// running (main state 4).
func baseSnapshot() *models.StoveState {
	return &models.StoveState{
		Name:            "Living Room",
		LastSeenMinutes: ip(0),
		Sensors: models.Sensors{
			RoomTemperature:  fp(19.6),
			FlameTemperature: ip(540),
			MainState:        ip(4),
			SubState:         ip(0),
			StatusError:      ip(0),
			FeedRateTotal:    fp(100),
		},
		Controls: models.Controls{
			OnOff:             bp(true),
			OperatingMode:     ip(ModeAuto),
			TargetTemperature: fp(21),
			Revision:          func() *int64 { r := int64(1); return &r }(),
		},
	}
}

func TestMutatorsAreNoOpsWithoutSnapshot(t *testing.T) {
	s := newTestStove()

	s.SetOnOff(true)
	s.SetTargetTemperature(22)
	s.TurnHeatingTimesOn()
	s.SetHVACMode(models.HVACModeHeat)

	if s.HasPendingChanges() {
		t.Fatal("mutators on a stove without state must not mark pending changes")
	}
	if s.HasState() {
		t.Fatal("no snapshot was ever applied")
	}
}

func TestSetOnOffMarksPending(t *testing.T) {
	s := newTestStove()
	s.ApplySnapshot(baseSnapshot())

	s.SetOnOff(false)

	if !s.HasPendingChanges() {
		t.Fatal("expected pending changes")
	}
	controls, ok := s.ControlState()
	if !ok {
		t.Fatal("control state should be available")
	}
	if controls.OnOff == nil || *controls.OnOff {
		t.Errorf("onOff = %v, want false", controls.OnOff)
	}

	s.ClearPendingChanges()
	if s.HasPendingChanges() {
		t.Fatal("pending flag should clear")
	}
}

func TestTurnHeatingTimesOn(t *testing.T) {
	s := newTestStove()
	st := baseSnapshot()
	st.Controls.OperatingMode = ip(ModeManual)
	st.Controls.OnOff = bp(false)
	s.ApplySnapshot(st)

	s.TurnHeatingTimesOn()

	controls, _ := s.ControlState()
	if controls.OnOff == nil || !*controls.OnOff {
		t.Error("enabling the schedule must power the stove on")
	}
	if controls.OperatingMode == nil || *controls.OperatingMode != ModeAuto {
		t.Errorf("operatingMode = %v, want auto", controls.OperatingMode)
	}
	if controls.HeatingTimesActiveForComfort == nil || !*controls.HeatingTimesActiveForComfort {
		t.Error("comfort schedule flag should be set")
	}
}

func TestTurnHeatingTimesPreservesComfortMode(t *testing.T) {
	s := newTestStove()
	st := baseSnapshot()
	st.Controls.OperatingMode = ip(ModeComfort)
	s.ApplySnapshot(st)

	s.TurnHeatingTimesOn()
	controls, _ := s.ControlState()
	if *controls.OperatingMode != ModeComfort {
		t.Errorf("comfort mode must be preserved, got %d", *controls.OperatingMode)
	}

	s.TurnHeatingTimesOff()
	controls, _ = s.ControlState()
	if *controls.OperatingMode != ModeComfort {
		t.Errorf("comfort mode must survive schedule off, got %d", *controls.OperatingMode)
	}
	if *controls.HeatingTimesActiveForComfort {
		t.Error("comfort schedule flag should be cleared")
	}
}

func TestTurnHeatingTimesOffDropsToManual(t *testing.T) {
	s := newTestStove()
	s.ApplySnapshot(baseSnapshot()) // auto mode

	s.TurnHeatingTimesOff()

	controls, _ := s.ControlState()
	if *controls.OperatingMode != ModeManual {
		t.Errorf("operatingMode = %d, want manual", *controls.OperatingMode)
	}
	if controls.OnOff == nil || !*controls.OnOff {
		t.Error("stove must stay powered")
	}
}

func TestSetHVACModeRoundTrips(t *testing.T) {
	cases := []struct {
		mode models.HVACMode
		want models.HVACMode
	}{
		{models.HVACModeOff, models.HVACModeOff},
		{models.HVACModeAuto, models.HVACModeAuto},
		{models.HVACModeHeat, models.HVACModeHeat},
	}
	for _, tc := range cases {
		s := newTestStove()
		s.ApplySnapshot(baseSnapshot())

		s.SetHVACMode(tc.mode)
		if got := s.HVACMode(); got != tc.want {
			t.Errorf("SetHVACMode(%s): HVACMode() = %s", tc.mode, got)
		}
	}
}

func TestSetPresetMode(t *testing.T) {
	s := newTestStove()
	s.ApplySnapshot(baseSnapshot())

	s.SetPresetMode(models.PresetComfort)
	if got := s.PresetMode(); got != models.PresetComfort {
		t.Errorf("preset = %s, want comfort", got)
	}
}

func TestSetPresetNoneFromSchedule(t *testing.T) {
	s := newTestStove()
	s.ApplySnapshot(baseSnapshot()) // auto mode, schedule governs

	s.SetPresetMode(models.PresetNone)

	mode, _ := s.OperatingMode()
	if mode != ModeManual {
		t.Errorf("operatingMode = %d, want manual", mode)
	}
	if s.IsHeatingTimesOn() {
		t.Error("schedule should be off")
	}
}

func TestSetPresetNoneWithoutSchedule(t *testing.T) {
	s := newTestStove()
	st := baseSnapshot()
	st.Controls.OperatingMode = ip(ModeManual)
	s.ApplySnapshot(st)

	s.SetPresetMode(models.PresetNone)

	mode, _ := s.OperatingMode()
	if mode != ModeManual {
		t.Errorf("operatingMode = %d, want manual", mode)
	}
}

func TestHVACActionPartition(t *testing.T) {
	cases := []struct {
		name string
		main *int
		sub  *int
		on   bool
		want models.HVACAction
	}{
		{"off stove", ip(4), ip(0), false, models.HVACActionOff},
		{"running", ip(4), ip(0), true, models.HVACActionHeating},
		{"ignition", ip(2), ip(0), true, models.HVACActionHeating},
		{"split log check", ip(11), ip(0), true, models.HVACActionHeating},
		{"cleaning", ip(5), ip(1), true, models.HVACActionIdle},
		{"burn off", ip(6), ip(0), true, models.HVACActionIdle},
		{"stove off state", ip(1), ip(0), true, models.HVACActionOff},
		{"standby", ip(1), ip(1), true, models.HVACActionIdle},
		{"no main state", nil, nil, true, models.HVACActionOff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStove()
			st := baseSnapshot()
			st.Sensors.MainState = tc.main
			st.Sensors.SubState = tc.sub
			st.Controls.OnOff = bp(tc.on)
			s.ApplySnapshot(st)

			if got := s.HVACAction(); got != tc.want {
				t.Errorf("action = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDerivedUnitConversions(t *testing.T) {
	s := newTestStove()
	st := baseSnapshot()
	st.Sensors.RuntimeLogs = ip(150) // minutes
	st.Sensors.AirFlaps = fp(455)    // tenths of a percent
	s.ApplySnapshot(st)

	if hours, ok := s.RuntimeLogs(); !ok || hours != 2 {
		t.Errorf("RuntimeLogs = %d,%v, want 2h", hours, ok)
	}
	if pct, ok := s.AirFlaps(); !ok || pct != 45.5 {
		t.Errorf("AirFlaps = %v,%v, want 45.5", pct, ok)
	}
}

func TestLastSeenDefaultsOffline(t *testing.T) {
	s := newTestStove()
	if got := s.LastSeenMinutes(); got != offlineLastSeen {
		t.Errorf("no snapshot: lastSeen = %d, want %d", got, offlineLastSeen)
	}

	st := baseSnapshot()
	st.LastSeenMinutes = nil
	s.ApplySnapshot(st)
	if got := s.LastSeenMinutes(); got != offlineLastSeen {
		t.Errorf("absent field: lastSeen = %d, want %d", got, offlineLastSeen)
	}
}
