package stove

import (
	"math"

	"stovelink/internal/models"
)

// consumptionNoiseKg filters jitter in the cumulative feed counter; smaller
// deltas neither move the stock nor advance the baseline.
const consumptionNoiseKg = 0.01

// PelletStock estimates the remaining pellets in the tank by differencing
// the stove's cumulative feed counter against the last seen baseline.
//
// The first reading after a snapshot becomes available only anchors the
// baseline. A counter that moved backwards means the stove-side counter was
// reset; the baseline re-anchors without touching the stock. Otherwise the
// consumed difference is subtracted, floored at zero.
func (s *Stove) PelletStock() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counter *float64
	if s.state != nil {
		counter = s.state.Sensors.FeedRateTotal
	}
	if counter == nil {
		return s.stockKg
	}

	if s.lastCounter == nil || *counter < *s.lastCounter {
		c := *counter
		s.lastCounter = &c
		s.stockDirty = true
		return s.stockKg
	}

	consumed := *counter - *s.lastCounter
	if consumed > consumptionNoiseKg {
		s.stockKg = math.Max(s.stockKg-consumed, 0)
		c := *counter
		s.lastCounter = &c
		s.stockDirty = true
	}
	return s.stockKg
}

// ResetPelletStock restores the stock to full capacity after a refill and
// re-anchors the baseline to the current counter. This is an explicit user
// action, never derived from telemetry.
func (s *Stove) ResetPelletStock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stockKg = s.capacityKg
	s.lastCounter = nil
	if s.state != nil && s.state.Sensors.FeedRateTotal != nil {
		c := *s.state.Sensors.FeedRateTotal
		s.lastCounter = &c
	}
	s.stockDirty = true
}

func (s *Stove) PelletCapacity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacityKg
}

// SetPelletCapacity updates the tank size; the remaining stock is clamped
// to the new capacity.
func (s *Stove) SetPelletCapacity(capacityKg float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capacityKg = capacityKg
	if s.stockKg > capacityKg {
		s.stockKg = capacityKg
	}
	s.stockDirty = true
}

// RestoreStock seeds the estimator from a persisted baseline at startup.
func (s *Stove) RestoreStock(ps models.PelletStock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ps.CapacityKg > 0 {
		s.capacityKg = ps.CapacityKg
	}
	s.stockKg = ps.StockKg
	s.lastCounter = nil
	if ps.BaselineCounter != nil {
		c := *ps.BaselineCounter
		s.lastCounter = &c
	}
	s.stockDirty = false
}

// StockState snapshots the estimator for persistence.
func (s *Stove) StockState() models.PelletStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := models.PelletStock{
		StoveID:    s.id,
		CapacityKg: s.capacityKg,
		StockKg:    s.stockKg,
	}
	if s.lastCounter != nil {
		c := *s.lastCounter
		ps.BaselineCounter = &c
	}
	return ps
}

// ConsumeStockDirty reports and clears the needs-persisting flag.
func (s *Stove) ConsumeStockDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirty := s.stockDirty
	s.stockDirty = false
	return dirty
}
