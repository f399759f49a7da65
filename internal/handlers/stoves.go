package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stovelink/internal/coordinator"
	"stovelink/internal/models"
	"stovelink/internal/stove"
)

// stoveSummary is the list-view projection of a stove.
type stoveSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StatusKey string `json:"statusKey"`
	Online    bool   `json:"online"`
}

// stoveView is the full derived state of one stove as served over HTTP
// and the WebSocket stream. Optional telemetry is reported as pointers
// so absent sensor values stay distinguishable from zero.
type stoveView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	StatusKey       string   `json:"statusKey"`
	StatusIcon      string   `json:"statusIcon"`
	HVACMode        string   `json:"hvacMode"`
	HVACAction      string   `json:"hvacAction"`
	PresetMode      string   `json:"presetMode"`
	LastSeenMinutes int      `json:"lastSeenMinutes"`
	Burning         bool     `json:"burning"`
	PendingChanges  bool     `json:"pendingChanges"`
	PelletStockKg   float64  `json:"pelletStockKg"`
	PelletCapacity  float64  `json:"pelletCapacityKg"`
	RoomTemperature *float64 `json:"roomTemperature,omitempty"`
	TargetTemp      *float64 `json:"targetTemperature,omitempty"`
	FlameTemp       *int     `json:"flameTemperature,omitempty"`
	MainState       *int     `json:"mainState,omitempty"`
	SubState        *int     `json:"subState,omitempty"`
	Consumption     *float64 `json:"consumptionKg,omitempty"`
	HeatingPower    *int     `json:"heatingPower,omitempty"`
	EcoMode         bool     `json:"ecoMode"`
}

func floatPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func intPtr(v int, ok bool) *int {
	if !ok {
		return nil
	}
	return &v
}

func buildStoveView(s *stove.Stove) stoveView {
	st := s.Status()
	return stoveView{
		ID:              s.ID(),
		Name:            s.Name(),
		StatusKey:       st.Key,
		StatusIcon:      st.Icon,
		HVACMode:        string(s.HVACMode()),
		HVACAction:      string(s.HVACAction()),
		PresetMode:      string(s.PresetMode()),
		LastSeenMinutes: s.LastSeenMinutes(),
		Burning:         s.IsBurning(),
		PendingChanges:  s.HasPendingChanges(),
		PelletStockKg:   s.PelletStock(),
		PelletCapacity:  s.PelletCapacity(),
		RoomTemperature: floatPtr(s.RoomTemperature()),
		TargetTemp:      floatPtr(s.TargetTemperature()),
		FlameTemp:       intPtr(s.FlameTemperature()),
		MainState:       intPtr(s.MainState()),
		SubState:        intPtr(s.SubState()),
		Consumption:     floatPtr(s.Consumption()),
		HeatingPower:    intPtr(s.HeatingPower()),
		EcoMode:         s.IsEcoMode(),
	}
}

// stoveByID resolves the :id path parameter or writes a 404.
func (h *Handler) stoveByID(c *gin.Context) (*stove.Stove, bool) {
	id := c.Param("id")
	s, ok := h.coord.Stove(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown stove id"})
		return nil, false
	}
	return s, true
}

// @Summary      Service health
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"stoves":   len(h.coord.Stoves()),
		"failures": h.coord.FailureCount(),
	})
}

// @Summary      List discovered stoves
// @Tags         stoves
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {array}  stoveSummary
// @Router       /api/v1/stoves [get]
func (h *Handler) listStoves(c *gin.Context) {
	stoves := h.coord.Stoves()
	out := make([]stoveSummary, 0, len(stoves))
	for _, s := range stoves {
		out = append(out, stoveSummary{
			ID:        s.ID(),
			Name:      s.Name(),
			StatusKey: s.Status().Key,
			Online:    s.LastSeenMinutes() <= 2,
		})
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Get derived stove state
// @Tags         stoves
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "stove id"
// @Success      200  {object}  stoveView
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/stoves/{id}/state [get]
func (h *Handler) getStoveState(c *gin.Context) {
	s, ok := h.stoveByID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, buildStoveView(s))
}

type hvacModeInput struct {
	Mode string `json:"mode" binding:"required"`
}

// @Summary      Set HVAC mode
// @Tags         stoves
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string         true  "stove id"
// @Param        body body      hvacModeInput  true  "one of off, heat, auto"
// @Success      202  {object}  stoveView
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/stoves/{id}/hvac-mode [post]
func (h *Handler) setHVACMode(c *gin.Context) {
	s, ok := h.stoveByID(c)
	if !ok {
		return
	}
	var input hvacModeInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	mode := models.HVACMode(input.Mode)
	switch mode {
	case models.HVACModeOff, models.HVACModeHeat, models.HVACModeAuto:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be off, heat or auto"})
		return
	}
	if !s.HasState() {
		c.JSON(http.StatusConflict, gin.H{"error": "stove has no snapshot yet"})
		return
	}

	s.SetHVACMode(mode)
	if mode != models.HVACModeOff {
		// When switching into a heating mode without a known setpoint,
		// fall back to the configured default temperature.
		if _, has := s.TargetTemperature(); !has {
			s.SetTargetTemperature(h.coord.DefaultTemperature())
		}
	}
	h.coord.RequestRefresh()
	c.JSON(http.StatusAccepted, buildStoveView(s))
}

type presetInput struct {
	Preset string `json:"preset" binding:"required"`
}

// @Summary      Set preset mode
// @Tags         stoves
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string       true  "stove id"
// @Param        body body      presetInput  true  "one of none, comfort"
// @Success      202  {object}  stoveView
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/stoves/{id}/preset [post]
func (h *Handler) setPreset(c *gin.Context) {
	s, ok := h.stoveByID(c)
	if !ok {
		return
	}
	var input presetInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	preset := models.Preset(input.Preset)
	switch preset {
	case models.PresetNone, models.PresetComfort:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "preset must be none or comfort"})
		return
	}
	if !s.HasState() {
		c.JSON(http.StatusConflict, gin.H{"error": "stove has no snapshot yet"})
		return
	}

	s.SetPresetMode(preset)
	h.coord.RequestRefresh()
	c.JSON(http.StatusAccepted, buildStoveView(s))
}

// controlsInput is a partial control patch. Only non-nil fields are applied.
type controlsInput struct {
	On                         *bool    `json:"on"`
	TargetTemperature          *float64 `json:"targetTemperature"`
	SetBackTemperature         *float64 `json:"setBackTemperature"`
	TemperatureOffset          *float64 `json:"temperatureOffset"`
	OperatingMode              *int     `json:"operatingMode"`
	HeatingTimesActiveComfort  *bool    `json:"heatingTimesActiveForComfort"`
	HeatingPower               *int     `json:"heatingPower"`
	RoomPowerRequest           *int     `json:"roomPowerRequest"`
	EcoMode                    *bool    `json:"ecoMode"`
	FrostProtectionActive      *bool    `json:"frostProtectionActive"`
	FrostProtectionTemperature *int     `json:"frostProtectionTemperature"`
	ConvectionFan1Active       *bool    `json:"convectionFan1Active"`
	ConvectionFan1Level        *int     `json:"convectionFan1Level"`
	ConvectionFan1Area         *int     `json:"convectionFan1Area"`
	ConvectionFan2Active       *bool    `json:"convectionFan2Active"`
	ConvectionFan2Level        *int     `json:"convectionFan2Level"`
	ConvectionFan2Area         *int     `json:"convectionFan2Area"`
}

// @Summary      Patch stove controls
// @Tags         stoves
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string         true  "stove id"
// @Param        body body      controlsInput  true  "fields to change"
// @Success      202  {object}  stoveView
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/stoves/{id}/controls [post]
func (h *Handler) patchControls(c *gin.Context) {
	s, ok := h.stoveByID(c)
	if !ok {
		return
	}
	var input controlsInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	if !s.HasState() {
		c.JSON(http.StatusConflict, gin.H{"error": "stove has no snapshot yet"})
		return
	}

	if input.On != nil {
		s.SetOnOff(*input.On)
	}
	if input.TargetTemperature != nil {
		s.SetTargetTemperature(*input.TargetTemperature)
	}
	if input.SetBackTemperature != nil {
		s.SetSetBackTemperature(*input.SetBackTemperature)
	}
	if input.TemperatureOffset != nil {
		s.SetTemperatureOffset(*input.TemperatureOffset)
	}
	if input.OperatingMode != nil {
		s.SetOperatingMode(*input.OperatingMode)
	}
	if input.HeatingTimesActiveComfort != nil {
		s.SetHeatingTimesActiveForComfort(*input.HeatingTimesActiveComfort)
	}
	if input.HeatingPower != nil {
		s.SetHeatingPower(*input.HeatingPower)
	}
	if input.RoomPowerRequest != nil {
		s.SetRoomPowerRequest(*input.RoomPowerRequest)
	}
	if input.EcoMode != nil {
		s.SetEcoMode(*input.EcoMode)
	}
	if input.FrostProtectionActive != nil {
		s.SetFrostProtectionActive(*input.FrostProtectionActive)
	}
	if input.FrostProtectionTemperature != nil {
		s.SetFrostProtectionTemperature(*input.FrostProtectionTemperature)
	}
	if input.ConvectionFan1Active != nil {
		s.SetConvectionFan1Active(*input.ConvectionFan1Active)
	}
	if input.ConvectionFan1Level != nil {
		s.SetConvectionFan1Level(*input.ConvectionFan1Level)
	}
	if input.ConvectionFan1Area != nil {
		s.SetConvectionFan1Area(*input.ConvectionFan1Area)
	}
	if input.ConvectionFan2Active != nil {
		s.SetConvectionFan2Active(*input.ConvectionFan2Active)
	}
	if input.ConvectionFan2Level != nil {
		s.SetConvectionFan2Level(*input.ConvectionFan2Level)
	}
	if input.ConvectionFan2Area != nil {
		s.SetConvectionFan2Area(*input.ConvectionFan2Area)
	}

	h.coord.RequestRefresh()
	c.JSON(http.StatusAccepted, buildStoveView(s))
}

// @Summary      Reset pellet stock to a full hopper
// @Tags         stoves
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "stove id"
// @Success      200  {object}  stoveView
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/stoves/{id}/pellets/reset [post]
func (h *Handler) resetPelletStock(c *gin.Context) {
	s, ok := h.stoveByID(c)
	if !ok {
		return
	}
	s.ResetPelletStock()
	c.JSON(http.StatusOK, buildStoveView(s))
}

type capacityInput struct {
	CapacityKg float64 `json:"capacityKg" binding:"required"`
}

// @Summary      Set pellet hopper capacity
// @Tags         stoves
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string         true  "stove id"
// @Param        body body      capacityInput  true  "hopper capacity in kg"
// @Success      200  {object}  stoveView
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/stoves/{id}/pellets/capacity [put]
func (h *Handler) setPelletCapacity(c *gin.Context) {
	s, ok := h.stoveByID(c)
	if !ok {
		return
	}
	var input capacityInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	if input.CapacityKg <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capacityKg must be positive"})
		return
	}
	s.SetPelletCapacity(input.CapacityKg)
	c.JSON(http.StatusOK, buildStoveView(s))
}

// @Summary      Trigger an immediate poll sweep
// @Tags         system
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  map[string]any
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/refresh [post]
func (h *Handler) requestRefresh(c *gin.Context) {
	states, err := h.coord.PollOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, coordinator.ErrUpdateFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "all stoves failed to update"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(states)})
}
