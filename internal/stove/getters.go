package stove

import (
	"stovelink/internal/models"
)

// offlineLastSeen stands in when the field is absent: an unreadable
// last-seen counter must look offline, not fresh.
const offlineLastSeen = 99

// Main states that mean the stove is actively producing heat, and states
// where it is powered but idling (cleaning, burn-off).
var (
	heatingMainStates = map[int]bool{2: true, 3: true, 4: true, 11: true, 13: true, 14: true, 16: true, 17: true, 20: true, 21: true, 50: true}
	idleMainStates    = map[int]bool{5: true, 6: true}
)

func (s *Stove) floatValue(pick func(*models.StoveState) *float64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return 0, false
	}
	if p := pick(s.state); p != nil {
		return *p, true
	}
	return 0, false
}

func (s *Stove) intValue(pick func(*models.StoveState) *int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return 0, false
	}
	if p := pick(s.state); p != nil {
		return *p, true
	}
	return 0, false
}

func (s *Stove) boolValue(pick func(*models.StoveState) *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return false
	}
	if p := pick(s.state); p != nil {
		return *p
	}
	return false
}

// ---- telemetry ----

func (s *Stove) RoomTemperature() (float64, bool) {
	return s.floatValue(func(st *models.StoveState) *float64 { return st.Sensors.RoomTemperature })
}

func (s *Stove) FlameTemperature() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.FlameTemperature })
}

func (s *Stove) MainState() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.MainState })
}

func (s *Stove) SubState() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.SubState })
}

func (s *Stove) StatusErrorCode() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.StatusError })
}

func (s *Stove) StatusSubErrorCode() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.StatusSubError })
}

func (s *Stove) StatusWarningCode() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.StatusWarning })
}

func (s *Stove) IsFrostProtectionStarted() bool {
	return s.boolValue(func(st *models.StoveState) *bool { return st.Sensors.FrostStarted })
}

// LastSeenMinutes returns how long ago the stove reported in. Absent or
// malformed data reads as a large value so the stove shows offline.
func (s *Stove) LastSeenMinutes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil || s.state.LastSeenMinutes == nil {
		return offlineLastSeen
	}
	return *s.state.LastSeenMinutes
}

// Consumption is the cumulative pellet feed counter in kg.
func (s *Stove) Consumption() (float64, bool) {
	return s.floatValue(func(st *models.StoveState) *float64 { return st.Sensors.FeedRateTotal })
}

func (s *Stove) PelletsBeforeService() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.FeedRateService })
}

func (s *Stove) RuntimePellets() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.RuntimePellets })
}

// RuntimeLogs converts the raw minute counter to hours.
func (s *Stove) RuntimeLogs() (int, bool) {
	v, ok := s.intValue(func(st *models.StoveState) *int { return st.Sensors.RuntimeLogs })
	if !ok {
		return 0, false
	}
	return v / 60, true
}

func (s *Stove) DischargeMotor() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.DischargeMotor })
}

func (s *Stove) FanVelocity() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Sensors.IDFan })
}

// AirFlaps reports the flap opening in percent; the raw value is tenths.
func (s *Stove) AirFlaps() (float64, bool) {
	v, ok := s.floatValue(func(st *models.StoveState) *float64 { return st.Sensors.AirFlaps })
	if !ok {
		return 0, false
	}
	return v / 10.0, true
}

// ---- controls ----

func (s *Stove) IsOn() bool {
	return s.boolValue(func(st *models.StoveState) *bool { return st.Controls.OnOff })
}

func (s *Stove) OperatingMode() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Controls.OperatingMode })
}

func (s *Stove) IsHeatingTimesActiveForComfort() bool {
	return s.boolValue(func(st *models.StoveState) *bool { return st.Controls.HeatingTimesActiveForComfort })
}

func (s *Stove) TargetTemperature() (float64, bool) {
	return s.floatValue(func(st *models.StoveState) *float64 { return st.Controls.TargetTemperature })
}

func (s *Stove) SetBackTemperature() (float64, bool) {
	return s.floatValue(func(st *models.StoveState) *float64 { return st.Controls.SetBackTemperature })
}

func (s *Stove) TemperatureOffset() (float64, bool) {
	return s.floatValue(func(st *models.StoveState) *float64 { return st.Controls.TemperatureOffset })
}

func (s *Stove) FrostProtectionTemperature() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Controls.FrostProtectionTemperature })
}

func (s *Stove) IsFrostProtectionActive() bool {
	return s.boolValue(func(st *models.StoveState) *bool { return st.Controls.FrostProtectionActive })
}

func (s *Stove) IsEcoMode() bool {
	return s.boolValue(func(st *models.StoveState) *bool { return st.Controls.EcoMode })
}

func (s *Stove) RoomPowerRequest() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Controls.RoomPowerRequest })
}

func (s *Stove) HeatingPower() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Controls.HeatingPower })
}

func (s *Stove) IsConvectionFan1On() bool {
	return s.boolValue(func(st *models.StoveState) *bool { return st.Controls.ConvectionFan1Active })
}

func (s *Stove) ConvectionFan1Level() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Controls.ConvectionFan1Level })
}

func (s *Stove) ConvectionFan1Area() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Controls.ConvectionFan1Area })
}

func (s *Stove) IsConvectionFan2On() bool {
	return s.boolValue(func(st *models.StoveState) *bool { return st.Controls.ConvectionFan2Active })
}

func (s *Stove) ConvectionFan2Level() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Controls.ConvectionFan2Level })
}

func (s *Stove) ConvectionFan2Area() (int, bool) {
	return s.intValue(func(st *models.StoveState) *int { return st.Controls.ConvectionFan2Area })
}

// ---- feature flags ----

func (s *Stove) HasAirFlaps() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.Features.AirFlaps
}

func (s *Stove) HasLogRuntime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.Features.LogRuntime
}

func (s *Stove) HasMultiAir1() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.Features.MultiAir1
}

func (s *Stove) HasMultiAir2() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.Features.MultiAir2
}

// ---- derived ----

// IsHeatingTimesOn reports whether the scheduled heating program governs.
// Auto mode is always scheduled; comfort mode defers to its own flag; manual
// or unknown is never scheduled.
func (s *Stove) IsHeatingTimesOn() bool {
	mode, ok := s.OperatingMode()
	if !ok {
		return false
	}
	switch mode {
	case ModeAuto:
		return true
	case ModeComfort:
		return s.IsHeatingTimesActiveForComfort()
	}
	return false
}

func (s *Stove) HVACMode() models.HVACMode {
	if !s.IsOn() {
		return models.HVACModeOff
	}
	if s.IsHeatingTimesOn() {
		return models.HVACModeAuto
	}
	return models.HVACModeHeat
}

// HVACAction maps the physical main/sub state onto what the stove is doing.
// Unknown states read as off, the conservative default.
func (s *Stove) HVACAction() models.HVACAction {
	if !s.IsOn() {
		return models.HVACActionOff
	}
	main, ok := s.MainState()
	if !ok {
		return models.HVACActionOff
	}
	switch {
	case heatingMainStates[main]:
		return models.HVACActionHeating
	case idleMainStates[main]:
		return models.HVACActionIdle
	case main == 1:
		if sub, ok := s.SubState(); ok && sub == 0 {
			return models.HVACActionOff
		}
		return models.HVACActionIdle
	}
	return models.HVACActionOff
}

func (s *Stove) PresetMode() models.Preset {
	if mode, ok := s.OperatingMode(); ok && mode == ModeComfort {
		return models.PresetComfort
	}
	return models.PresetNone
}

func (s *Stove) IsBurning() bool {
	main, ok := s.MainState()
	return ok && (main == 4 || main == 5)
}
