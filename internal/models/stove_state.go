package models

import "time"

// HVACMode is the commanded heating mode derived from the stove controls.
type HVACMode string

const (
	HVACModeOff  HVACMode = "off"
	HVACModeHeat HVACMode = "heat"
	HVACModeAuto HVACMode = "auto"
)

// HVACAction is what the stove is physically doing right now.
type HVACAction string

const (
	HVACActionOff     HVACAction = "off"
	HVACActionIdle    HVACAction = "idle"
	HVACActionHeating HVACAction = "heating"
)

// Preset selects between plain heating-time schedules and comfort mode.
type Preset string

const (
	PresetNone    Preset = "none"
	PresetComfort Preset = "comfort"
)

// StoveState is one fetched snapshot of a stove, as served by
// GET /api/client/{id}/status. Telemetry and control fields are optional
// pointers: nil means the vendor omitted the field or sent something
// unusable (the mapping layer in decode.go resolves that once, so readers
// never have to re-check types).
type StoveState struct {
	Name            string   `json:"name,omitempty"`
	LastSeenMinutes *int     `json:"lastSeenMinutes,omitempty"`
	Sensors         Sensors  `json:"sensors"`
	Controls        Controls `json:"controls"`
	Features        Features `json:"stoveFeatures"`
}

// Sensors is the read-only telemetry group.
type Sensors struct {
	RoomTemperature  *float64 `json:"inputRoomTemperature,omitempty"`
	FlameTemperature *int     `json:"inputFlameTemperature,omitempty"`
	MainState        *int     `json:"statusMainState,omitempty"`
	SubState         *int     `json:"statusSubState,omitempty"`
	StatusError      *int     `json:"statusError,omitempty"`
	StatusSubError   *int     `json:"statusSubError,omitempty"`
	StatusWarning    *int     `json:"statusWarning,omitempty"`
	FrostStarted     *bool    `json:"statusFrostStarted,omitempty"`
	FeedRateTotal    *float64 `json:"parameterFeedRateTotal,omitempty"`
	FeedRateService  *int     `json:"parameterFeedRateService,omitempty"`
	RuntimePellets   *int     `json:"parameterRuntimePellets,omitempty"`
	RuntimeLogs      *int     `json:"parameterRuntimeLogs,omitempty"`
	DischargeMotor   *int     `json:"outputDischargeMotor,omitempty"`
	IDFan            *int     `json:"outputIDFan,omitempty"`
	AirFlaps         *float64 `json:"outputAirFlaps,omitempty"`
}

// Controls is the read/write group. The same struct doubles as the control
// diff posted back to the vendor; nil fields are omitted from the payload.
// Revision is the vendor-issued write token and must accompany every POST.
type Controls struct {
	OnOff                        *bool    `json:"onOff,omitempty"`
	OperatingMode                *int     `json:"operatingMode,omitempty"`
	HeatingTimesActiveForComfort *bool    `json:"heatingTimesActiveForComfort,omitempty"`
	TargetTemperature            *float64 `json:"targetTemperature,omitempty"`
	SetBackTemperature           *float64 `json:"setBackTemperature,omitempty"`
	TemperatureOffset            *float64 `json:"temperatureOffset,omitempty"`
	FrostProtectionActive        *bool    `json:"frostProtectionActive,omitempty"`
	FrostProtectionTemperature   *int     `json:"frostProtectionTemperature,omitempty"`
	EcoMode                      *bool    `json:"ecoMode,omitempty"`
	RoomPowerRequest             *int     `json:"RoomPowerRequest,omitempty"`
	HeatingPower                 *int     `json:"heatingPower,omitempty"`
	ConvectionFan1Active         *bool    `json:"convectionFan1Active,omitempty"`
	ConvectionFan1Level          *int     `json:"convectionFan1Level,omitempty"`
	ConvectionFan1Area           *int     `json:"convectionFan1Area,omitempty"`
	ConvectionFan2Active         *bool    `json:"convectionFan2Active,omitempty"`
	ConvectionFan2Level          *int     `json:"convectionFan2Level,omitempty"`
	ConvectionFan2Area           *int     `json:"convectionFan2Area,omitempty"`
	Revision                     *int64   `json:"revision,omitempty"`
}

// Features flags which optional hardware a stove carries.
type Features struct {
	AirFlaps   bool `json:"airFlaps"`
	LogRuntime bool `json:"logRuntime"`
	MultiAir1  bool `json:"multiAir1"`
	MultiAir2  bool `json:"multiAir2"`
}

// PelletStock is the persisted pellet-consumption baseline for one stove.
// BaselineCounter is the last observed cumulative feed-rate counter; nil
// means no baseline has been anchored yet.
type PelletStock struct {
	StoveID         string    `json:"stove_id"`
	CapacityKg      float64   `json:"capacity_kg"`
	StockKg         float64   `json:"stock_kg"`
	BaselineCounter *float64  `json:"baseline_counter,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StoveEvent is a single coordinator log entry.
type StoveEvent struct {
	EventID     string    `json:"event_id"`
	StoveID     string    `json:"stove_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // STATUS_CHANGE | COMMAND_FAILED | RESTART
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // never expose the hash
}
