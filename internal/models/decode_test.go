package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeStoveState_TypicalDocument(t *testing.T) {
	t.Parallel()

	doc := `{
		"name": "Living Room",
		"lastSeenMinutes": 0,
		"sensors": {
			"inputRoomTemperature": "19.6",
			"inputFlameTemperature": 540,
			"statusMainState": 4,
			"statusSubState": 0,
			"statusError": 0,
			"parameterFeedRateTotal": 1234.5
		},
		"controls": {
			"onOff": true,
			"operatingMode": 1,
			"targetTemperature": "21",
			"heatingTimesActiveForComfort": 0,
			"revision": 1700000000
		},
		"stoveFeatures": {
			"airFlaps": true,
			"logRuntime": false
		}
	}`

	st, warnings, err := DecodeStoveState([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	if st.Name != "Living Room" {
		t.Errorf("name = %q", st.Name)
	}
	if st.LastSeenMinutes == nil || *st.LastSeenMinutes != 0 {
		t.Errorf("lastSeenMinutes = %v", st.LastSeenMinutes)
	}
	if st.Sensors.RoomTemperature == nil || *st.Sensors.RoomTemperature != 19.6 {
		t.Errorf("room temperature = %v, want 19.6 (string coercion)", st.Sensors.RoomTemperature)
	}
	if st.Sensors.MainState == nil || *st.Sensors.MainState != 4 {
		t.Errorf("main state = %v", st.Sensors.MainState)
	}
	if st.Controls.OnOff == nil || !*st.Controls.OnOff {
		t.Errorf("onOff = %v", st.Controls.OnOff)
	}
	if st.Controls.TargetTemperature == nil || *st.Controls.TargetTemperature != 21 {
		t.Errorf("target = %v", st.Controls.TargetTemperature)
	}
	// 0/1 flags coerce to bools
	if st.Controls.HeatingTimesActiveForComfort == nil || *st.Controls.HeatingTimesActiveForComfort {
		t.Errorf("heatingTimesActiveForComfort = %v, want false", st.Controls.HeatingTimesActiveForComfort)
	}
	if st.Controls.Revision == nil || *st.Controls.Revision != 1700000000 {
		t.Errorf("revision = %v", st.Controls.Revision)
	}
	if !st.Features.AirFlaps || st.Features.LogRuntime {
		t.Errorf("features = %+v", st.Features)
	}
}

func TestDecodeStoveState_AbsentVsMalformed(t *testing.T) {
	t.Parallel()

	doc := `{
		"sensors": {
			"inputRoomTemperature": "not a number",
			"statusMainState": null
		},
		"controls": {}
	}`

	st, warnings, err := DecodeStoveState([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// malformed -> nil plus a warning naming the field
	if st.Sensors.RoomTemperature != nil {
		t.Errorf("room temperature should be nil, got %v", *st.Sensors.RoomTemperature)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "inputRoomTemperature") {
		t.Errorf("warnings = %v", warnings)
	}

	// null and absent -> nil with no warning
	if st.Sensors.MainState != nil {
		t.Errorf("main state should be nil")
	}
	if st.Sensors.FlameTemperature != nil {
		t.Errorf("flame temperature should be nil")
	}
	if st.LastSeenMinutes != nil {
		t.Errorf("lastSeenMinutes should be nil when absent")
	}
}

func TestDecodeStoveState_InvalidJSON(t *testing.T) {
	t.Parallel()

	if _, _, err := DecodeStoveState([]byte(`{"sensors":`)); err == nil {
		t.Fatal("expected error for truncated document")
	}
}

func TestControls_MarshalOmitsUnsetFields(t *testing.T) {
	t.Parallel()

	on := true
	temp := 20.5
	rev := int64(42)
	c := Controls{OnOff: &on, TargetTemperature: &temp, Revision: &rev}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if len(m) != 3 {
		t.Errorf("expected 3 keys (onOff, targetTemperature, revision), got %v", m)
	}
	if _, ok := m["operatingMode"]; ok {
		t.Error("unset operatingMode must be omitted from the POST body")
	}
}
