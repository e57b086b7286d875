// Package button reads the lamp's physical control via a GPIO line.
package button

import (
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Presser receives debounced press events.
type Presser interface {
	PressButton()
}

// Config holds button configuration.
type Config struct {
	Chip string
	Pin  int
}

// Service owns the GPIO line and forwards edge events.
type Service struct {
	cfg     Config
	presser Presser
	line    *gpiocdev.Line
}

// NewService creates a button service.
func NewService(cfg Config, presser Presser) *Service {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	return &Service{cfg: cfg, presser: presser}
}

// Start requests the GPIO line with falling-edge events. The button wires
// the pin to ground, so a press is a falling edge on the pulled-up line.
func (s *Service) Start() error {
	line, err := gpiocdev.RequestLine(s.cfg.Chip, s.cfg.Pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(20*time.Millisecond),
		gpiocdev.WithEventHandler(s.onEvent),
	)
	if err != nil {
		return fmt.Errorf("failed to request button line %s:%d: %w", s.cfg.Chip, s.cfg.Pin, err)
	}
	s.line = line

	log.Printf("🔘 Button service listening on %s pin %d", s.cfg.Chip, s.cfg.Pin)
	return nil
}

func (s *Service) onEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	s.presser.PressButton()
}

// Stop releases the GPIO line.
func (s *Service) Stop() {
	if s.line != nil {
		_ = s.line.Close()
		s.line = nil
		log.Printf("🔘 Button service stopped")
	}
}
