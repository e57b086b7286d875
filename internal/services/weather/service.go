// Package weather polls OpenWeatherMap and feeds observations to the engine.
package weather

import (
	"context"
	"log"
	"time"

	"github.com/presencelamp/presencelamp-go/internal/engine"
	"github.com/presencelamp/presencelamp-go/pkg/openweather"
)

// Sink receives decoded weather observations.
type Sink interface {
	SetWeather(condition engine.Condition, tempC float64)
}

// Fetcher fetches one observation. Implemented by openweather.Client.
type Fetcher interface {
	Current(ctx context.Context) (*openweather.Observation, error)
}

// Service polls the weather API on an interval and on demand.
type Service struct {
	fetcher  Fetcher
	sink     Sink
	interval time.Duration

	// refreshChan wakes the poll loop early; buffered so requesters never
	// block.
	refreshChan chan struct{}
}

// NewService creates a weather service. A nil fetcher means the lamp has no
// weather configuration; the sink is put into the offline condition and
// polling never starts.
func NewService(fetcher Fetcher, sink Sink, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Service{
		fetcher:     fetcher,
		sink:        sink,
		interval:    interval,
		refreshChan: make(chan struct{}, 1),
	}
}

// RequestRefresh asks for an immediate fetch. Non-blocking; safe to call
// from the engine's mode transitions.
func (s *Service) RequestRefresh() {
	select {
	case s.refreshChan <- struct{}{}:
	default:
		// A refresh is already pending
	}
}

// Run polls until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if s.fetcher == nil {
		log.Printf("🌤️  Weather service disabled (no API configuration)")
		s.sink.SetWeather(engine.ConditionOffline, 0)
		return
	}

	log.Printf("🌤️  Weather service polling every %v", s.interval)
	s.fetch(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetch(ctx)
		case <-s.refreshChan:
			s.fetch(ctx)
		}
	}
}

// fetch performs one observation fetch. Failures become the error sentinel
// condition rather than propagating.
func (s *Service) fetch(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	obs, err := s.fetcher.Current(fetchCtx)
	if err != nil {
		log.Printf("🌤️  Weather fetch failed: %v", err)
		s.sink.SetWeather(engine.ConditionError, 0)
		return
	}

	condition := engine.ParseCondition(obs.Condition)
	log.Printf("🌤️  Weather: %s (%.1f°C) in %s", obs.Condition, obs.TempC, obs.City)
	s.sink.SetWeather(condition, obs.TempC)
}
