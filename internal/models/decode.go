package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The vendor API is loosely typed: numeric fields occasionally arrive as
// strings, booleans as 0/1, and any field may be missing entirely. All of
// that is resolved here, once, into the typed StoveState. A field that is
// present but unusable becomes nil and produces a warning so callers can
// tell malformed data apart from simply-absent data.

type fieldDecoder struct {
	warnings []string
}

func (d *fieldDecoder) warnf(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

func (d *fieldDecoder) floatField(group map[string]json.RawMessage, groupName, key string) *float64 {
	raw, ok := group[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &f
		}
	}
	d.warnf("%s.%s: malformed value %s", groupName, key, raw)
	return nil
}

func (d *fieldDecoder) intField(group map[string]json.RawMessage, groupName, key string) *int {
	f := d.floatField(group, groupName, key)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func (d *fieldDecoder) boolField(group map[string]json.RawMessage, groupName, key string) *bool {
	raw, ok := group[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}
	// 0/1 also show up for flags
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		b := f != 0
		return &b
	}
	d.warnf("%s.%s: malformed value %s", groupName, key, raw)
	return nil
}

// DecodeStoveState parses a raw status document into a typed snapshot.
// It returns the decoded state, a list of warnings for present-but-malformed
// fields, and an error only when the document itself is not valid JSON.
func DecodeStoveState(data []byte) (*StoveState, []string, error) {
	var raw struct {
		Name            json.RawMessage            `json:"name"`
		LastSeenMinutes json.RawMessage            `json:"lastSeenMinutes"`
		Sensors         map[string]json.RawMessage `json:"sensors"`
		Controls        map[string]json.RawMessage `json:"controls"`
		Features        map[string]json.RawMessage `json:"stoveFeatures"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode stove state: %w", err)
	}

	d := &fieldDecoder{}
	st := &StoveState{}

	if len(raw.Name) > 0 && string(raw.Name) != "null" {
		if err := json.Unmarshal(raw.Name, &st.Name); err != nil {
			d.warnf("name: malformed value %s", raw.Name)
		}
	}
	top := map[string]json.RawMessage{}
	if len(raw.LastSeenMinutes) > 0 {
		top["lastSeenMinutes"] = raw.LastSeenMinutes
	}
	st.LastSeenMinutes = d.intField(top, "status", "lastSeenMinutes")

	s := raw.Sensors
	st.Sensors = Sensors{
		RoomTemperature:  d.floatField(s, "sensors", "inputRoomTemperature"),
		FlameTemperature: d.intField(s, "sensors", "inputFlameTemperature"),
		MainState:        d.intField(s, "sensors", "statusMainState"),
		SubState:         d.intField(s, "sensors", "statusSubState"),
		StatusError:      d.intField(s, "sensors", "statusError"),
		StatusSubError:   d.intField(s, "sensors", "statusSubError"),
		StatusWarning:    d.intField(s, "sensors", "statusWarning"),
		FrostStarted:     d.boolField(s, "sensors", "statusFrostStarted"),
		FeedRateTotal:    d.floatField(s, "sensors", "parameterFeedRateTotal"),
		FeedRateService:  d.intField(s, "sensors", "parameterFeedRateService"),
		RuntimePellets:   d.intField(s, "sensors", "parameterRuntimePellets"),
		RuntimeLogs:      d.intField(s, "sensors", "parameterRuntimeLogs"),
		DischargeMotor:   d.intField(s, "sensors", "outputDischargeMotor"),
		IDFan:            d.intField(s, "sensors", "outputIDFan"),
		AirFlaps:         d.floatField(s, "sensors", "outputAirFlaps"),
	}

	c := raw.Controls
	st.Controls = Controls{
		OnOff:                        d.boolField(c, "controls", "onOff"),
		OperatingMode:                d.intField(c, "controls", "operatingMode"),
		HeatingTimesActiveForComfort: d.boolField(c, "controls", "heatingTimesActiveForComfort"),
		TargetTemperature:            d.floatField(c, "controls", "targetTemperature"),
		SetBackTemperature:           d.floatField(c, "controls", "setBackTemperature"),
		TemperatureOffset:            d.floatField(c, "controls", "temperatureOffset"),
		FrostProtectionActive:        d.boolField(c, "controls", "frostProtectionActive"),
		FrostProtectionTemperature:   d.intField(c, "controls", "frostProtectionTemperature"),
		EcoMode:                      d.boolField(c, "controls", "ecoMode"),
		RoomPowerRequest:             d.intField(c, "controls", "RoomPowerRequest"),
		HeatingPower:                 d.intField(c, "controls", "heatingPower"),
		ConvectionFan1Active:         d.boolField(c, "controls", "convectionFan1Active"),
		ConvectionFan1Level:          d.intField(c, "controls", "convectionFan1Level"),
		ConvectionFan1Area:           d.intField(c, "controls", "convectionFan1Area"),
		ConvectionFan2Active:         d.boolField(c, "controls", "convectionFan2Active"),
		ConvectionFan2Level:          d.intField(c, "controls", "convectionFan2Level"),
		ConvectionFan2Area:           d.intField(c, "controls", "convectionFan2Area"),
	}
	if rev := d.floatField(c, "controls", "revision"); rev != nil {
		r := int64(*rev)
		st.Controls.Revision = &r
	}

	f := raw.Features
	st.Features = Features{
		AirFlaps:   boolOr(d, f, "stoveFeatures", "airFlaps"),
		LogRuntime: boolOr(d, f, "stoveFeatures", "logRuntime"),
		MultiAir1:  boolOr(d, f, "stoveFeatures", "multiAir1"),
		MultiAir2:  boolOr(d, f, "stoveFeatures", "multiAir2"),
	}

	return st, d.warnings, nil
}

func boolOr(d *fieldDecoder, group map[string]json.RawMessage, groupName, key string) bool {
	if b := d.boolField(group, groupName, key); b != nil {
		return *b
	}
	return false
}
