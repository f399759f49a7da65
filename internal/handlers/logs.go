package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stovelink/internal/service"
)

var queryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseQueryTime accepts RFC3339 timestamps, "YYYY-MM-DD HH:MM:SS" and bare
// dates. A bare date used as an upper bound is extended to the end of that day.
func parseQueryTime(raw string, upperBound bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range queryTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if upperBound && layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

// @Summary      List coordinator events
// @Tags         logs
// @Produce      json
// @Security     ApiKeyAuth
// @Param        from   query     string  false  "lower bound (RFC3339 or date)"
// @Param        to     query     string  false  "upper bound (RFC3339 or date)"
// @Param        type   query     string  false  "event type filter"
// @Param        stove  query     string  false  "stove id filter"
// @Success      200  {array}   models.StoveEvent
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/logs [get]
func (h *Handler) getLogs(c *gin.Context) {
	from, err := parseQueryTime(c.Query("from"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := parseQueryTime(c.Query("to"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := service.LogFilter{
		From:    from,
		To:      to,
		Type:    c.Query("type"),
		StoveID: c.Query("stove"),
	}

	events, err := h.services.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}
