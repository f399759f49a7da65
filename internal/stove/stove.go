package stove

import (
	"sync"

	"stovelink/internal/logger"
	"stovelink/internal/models"
)

// Operating modes as reported by the vendor.
const (
	ModeManual  = 0
	ModeAuto    = 1
	ModeComfort = 2
)

// Stove is the in-memory model of one device: the last fetched snapshot,
// optimistic local control edits, and the pellet-stock bookkeeping. The
// coordinator sweep and the HTTP handlers touch the same instance, so all
// state lives behind one mutex.
//
// A stove without a snapshot is unavailable: getters report absent and
// mutators are warning no-ops that do not mark pending changes.
type Stove struct {
	mu      sync.Mutex
	id      string
	name    string
	state   *models.StoveState
	pending bool

	capacityKg  float64
	stockKg     float64
	lastCounter *float64
	stockDirty  bool

	log *logger.Logger
}

func New(id, name string, capacityKg float64, log *logger.Logger) *Stove {
	return &Stove{
		id:         id,
		name:       name,
		capacityKg: capacityKg,
		stockKg:    capacityKg,
		log:        log,
	}
}

func (s *Stove) ID() string   { return s.id }
func (s *Stove) Name() string { return s.name }

// ApplySnapshot replaces the remote state with a freshly fetched one.
func (s *Stove) ApplySnapshot(st *models.StoveState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// State returns the last known snapshot, or nil when the stove has never
// synced successfully.
func (s *Stove) State() *models.StoveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stove) HasState() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil
}

// HasPendingChanges reports whether a local control edit is waiting to be
// submitted.
func (s *Stove) HasPendingChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Stove) ClearPendingChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
}

// ControlState returns a copy of the current control group for submission.
// The second result is false when no snapshot exists.
func (s *Stove) ControlState() (models.Controls, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return models.Controls{}, false
	}
	return s.state.Controls, true
}

// setControls applies edits to the local control group and marks the stove
// dirty. New edits before submission overwrite in place; the whole control
// group is resubmitted verbatim, so last-writer-wins within a poll cycle.
func (s *Stove) setControls(what string, apply func(c *models.Controls)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		s.log.Warnw("cannot set control, stove state not available", "stove", s.id, "control", what)
		return
	}
	apply(&s.state.Controls)
	s.pending = true
}

// ---- single-field mutators ----

func (s *Stove) SetOnOff(on bool) {
	s.setControls("onOff", func(c *models.Controls) { c.OnOff = &on })
}

func (s *Stove) SetTargetTemperature(temp float64) {
	s.setControls("targetTemperature", func(c *models.Controls) { c.TargetTemperature = &temp })
}

func (s *Stove) SetTemperatureOffset(offset float64) {
	s.setControls("temperatureOffset", func(c *models.Controls) { c.TemperatureOffset = &offset })
}

func (s *Stove) SetSetBackTemperature(temp float64) {
	s.setControls("setBackTemperature", func(c *models.Controls) { c.SetBackTemperature = &temp })
}

func (s *Stove) SetFrostProtectionTemperature(temp int) {
	s.setControls("frostProtectionTemperature", func(c *models.Controls) { c.FrostProtectionTemperature = &temp })
}

func (s *Stove) SetFrostProtectionActive(on bool) {
	s.setControls("frostProtectionActive", func(c *models.Controls) { c.FrostProtectionActive = &on })
}

func (s *Stove) SetOperatingMode(mode int) {
	s.setControls("operatingMode", func(c *models.Controls) { c.OperatingMode = &mode })
}

func (s *Stove) SetHeatingTimesActiveForComfort(active bool) {
	s.setControls("heatingTimesActiveForComfort", func(c *models.Controls) {
		// changing heating times implies the stove should stay powered
		on := true
		c.OnOff = &on
		c.HeatingTimesActiveForComfort = &active
	})
}

func (s *Stove) SetRoomPowerRequest(power int) {
	s.setControls("RoomPowerRequest", func(c *models.Controls) { c.RoomPowerRequest = &power })
}

func (s *Stove) SetHeatingPower(power int) {
	s.setControls("heatingPower", func(c *models.Controls) { c.HeatingPower = &power })
}

func (s *Stove) SetEcoMode(on bool) {
	s.setControls("ecoMode", func(c *models.Controls) { c.EcoMode = &on })
}

func (s *Stove) SetConvectionFan1Active(on bool) {
	s.setControls("convectionFan1Active", func(c *models.Controls) { c.ConvectionFan1Active = &on })
}

func (s *Stove) SetConvectionFan1Level(level int) {
	s.setControls("convectionFan1Level", func(c *models.Controls) { c.ConvectionFan1Level = &level })
}

func (s *Stove) SetConvectionFan1Area(area int) {
	s.setControls("convectionFan1Area", func(c *models.Controls) { c.ConvectionFan1Area = &area })
}

func (s *Stove) SetConvectionFan2Active(on bool) {
	s.setControls("convectionFan2Active", func(c *models.Controls) { c.ConvectionFan2Active = &on })
}

func (s *Stove) SetConvectionFan2Level(level int) {
	s.setControls("convectionFan2Level", func(c *models.Controls) { c.ConvectionFan2Level = &level })
}

func (s *Stove) SetConvectionFan2Area(area int) {
	s.setControls("convectionFan2Area", func(c *models.Controls) { c.ConvectionFan2Area = &area })
}

// ---- composite mutators ----

// TurnHeatingTimesOn enables the scheduled heating program. In comfort mode
// the comfort schedule flag governs on its own, so the operating mode is left
// alone; otherwise the stove is switched to auto.
func (s *Stove) TurnHeatingTimesOn() {
	s.setControls("heatingTimes", func(c *models.Controls) {
		on, active := true, true
		c.OnOff = &on
		c.HeatingTimesActiveForComfort = &active
		if c.OperatingMode == nil || *c.OperatingMode != ModeComfort {
			mode := ModeAuto
			c.OperatingMode = &mode
		}
	})
}

// TurnHeatingTimesOff disables the schedule. The stove stays powered; unless
// in comfort mode it drops to manual.
func (s *Stove) TurnHeatingTimesOff() {
	s.setControls("heatingTimes", func(c *models.Controls) {
		on, active := true, false
		c.OnOff = &on
		c.HeatingTimesActiveForComfort = &active
		if c.OperatingMode == nil || *c.OperatingMode != ModeComfort {
			mode := ModeManual
			c.OperatingMode = &mode
		}
	})
}

// SetHVACMode maps the host-facing mode onto the stove controls.
func (s *Stove) SetHVACMode(mode models.HVACMode) {
	switch mode {
	case models.HVACModeOff:
		s.SetOnOff(false)
	case models.HVACModeAuto:
		s.TurnHeatingTimesOn()
	case models.HVACModeHeat:
		s.TurnHeatingTimesOff()
	default:
		s.log.Warnw("unknown hvac mode", "stove", s.id, "mode", mode)
	}
}

// SetPresetMode switches between comfort mode and plain manual control.
// Leaving comfort while the schedule is active demotes via the schedule
// (which lands in manual mode); otherwise manual is set explicitly.
func (s *Stove) SetPresetMode(preset models.Preset) {
	if preset == models.PresetComfort {
		s.SetOperatingMode(ModeComfort)
		return
	}
	if s.IsHeatingTimesOn() {
		s.TurnHeatingTimesOff()
	} else {
		s.SetOperatingMode(ModeManual)
	}
}
