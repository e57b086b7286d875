// Package strip manages the logical LED pixel buffer and WS281x output.
package strip

import (
	"fmt"
	"log"
	"sync"
	"time"

	ws2811 "github.com/rpi-ws281x/rpi-ws281x-go"
)

const (
	// DefaultLedCount is the number of pixels on the strip.
	DefaultLedCount = 60
	// DefaultGpioPin is the data pin for the WS281x strip.
	DefaultGpioPin = 18
)

// Color is a single RGB pixel value.
type Color struct {
	R, G, B uint8
}

// Black is the off pixel value.
var Black = Color{}

// Scale returns the color attenuated to the given brightness (0-255).
func (c Color) Scale(brightness uint8) Color {
	return Color{
		R: uint8(uint16(c.R) * uint16(brightness) / 255),
		G: uint8(uint16(c.G) * uint16(brightness) / 255),
		B: uint8(uint16(c.B) * uint16(brightness) / 255),
	}
}

// word packs the color into the 0xRRGGBB form the driver expects; the
// driver handles the strip's GRB wire ordering itself.
func (c Color) word() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Service owns the pixel buffer and pushes it to the WS281x strip.
type Service struct {
	mu sync.RWMutex

	pixels     []Color
	brightness uint8

	// Configuration
	enabled          bool
	gpioPin          int
	refreshRateHz    int
	idleRateHz       int
	highRateDuration time.Duration

	// Adaptive push rate state
	currentRate      int
	isInHighRateMode bool
	lastChangeTime   time.Time

	// Dirty flag for efficient transmission
	isDirty bool

	// Hardware device (nil in simulation mode)
	dev *ws2811.WS2811

	// Control
	stopChan chan struct{}
	running  bool
}

// Config holds strip service configuration.
type Config struct {
	Enabled          bool
	LedCount         int
	GpioPin          int
	RefreshRateHz    int
	IdleRateHz       int
	HighRateDuration time.Duration
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		LedCount:         DefaultLedCount,
		GpioPin:          DefaultGpioPin,
		RefreshRateHz:    60,
		IdleRateHz:       1,
		HighRateDuration: 2 * time.Second,
	}
}

// NewService creates a new strip service.
func NewService(cfg Config) *Service {
	ledCount := cfg.LedCount
	if ledCount <= 0 {
		ledCount = DefaultLedCount
	}
	gpioPin := cfg.GpioPin
	if gpioPin <= 0 {
		gpioPin = DefaultGpioPin
	}
	refreshRate := cfg.RefreshRateHz
	if refreshRate <= 0 {
		refreshRate = 60
	}
	idleRate := cfg.IdleRateHz
	if idleRate <= 0 {
		idleRate = 1
	}
	highRateDuration := cfg.HighRateDuration
	if highRateDuration <= 0 {
		highRateDuration = 2 * time.Second
	}

	return &Service{
		pixels:           make([]Color, ledCount),
		brightness:       255,
		enabled:          cfg.Enabled,
		gpioPin:          gpioPin,
		refreshRateHz:    refreshRate,
		idleRateHz:       idleRate,
		highRateDuration: highRateDuration,
		currentRate:      idleRate, // Start at idle rate until first change
		stopChan:         make(chan struct{}),
	}
}

// Initialize opens the WS281x device and starts the push loop.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.enabled {
		opt := ws2811.DefaultOptions
		opt.Channels[0].GpioPin = s.gpioPin
		opt.Channels[0].LedCount = len(s.pixels)
		// Brightness is applied in software so the logical buffer keeps
		// full-range colors; the driver stays at maximum.
		opt.Channels[0].Brightness = 255

		dev, err := ws2811.MakeWS2811(&opt)
		if err != nil {
			return fmt.Errorf("failed to create ws281x device: %w", err)
		}
		if err := dev.Init(); err != nil {
			return fmt.Errorf("failed to init ws281x device: %w", err)
		}
		s.dev = dev

		log.Printf("💡 Strip service initialized: %d pixels on GPIO %d", len(s.pixels), s.gpioPin)
		log.Printf("📡 Adaptive push: %dHz (active) / %dHz (idle), %v high-rate duration",
			s.refreshRateHz, s.idleRateHz, s.highRateDuration)
	} else {
		log.Printf("💡 Strip service initialized: %d pixels (simulation mode)", len(s.pixels))
	}

	s.running = true
	go s.pushLoop()

	return nil
}

// pushLoop runs the adaptive rate hardware push loop.
func (s *Service) pushLoop() {
	s.mu.RLock()
	interval := time.Second / time.Duration(s.currentRate)
	s.mu.RUnlock()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastRate := 0

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.processPush()

			s.mu.RLock()
			currentRate := s.currentRate
			s.mu.RUnlock()

			if currentRate != lastRate {
				// Rate changed, recreate ticker with new interval
				oldTicker := ticker
				ticker = time.NewTicker(time.Second / time.Duration(currentRate))
				oldTicker.Stop()
				lastRate = currentRate
			}
		}
	}
}

// processPush handles a single push cycle.
func (s *Service) processPush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if s.isDirty {
		s.lastChangeTime = now
		if !s.isInHighRateMode {
			s.isInHighRateMode = true
			s.currentRate = s.refreshRateHz
		}
	} else if s.isInHighRateMode && !s.lastChangeTime.IsZero() && now.Sub(s.lastChangeTime) > s.highRateDuration {
		s.isInHighRateMode = false
		s.currentRate = s.idleRateHz
	}

	// Push in both modes: high rate for smooth animation, idle rate as a
	// keep-alive so the strip recovers from transient glitches.
	if s.dev != nil {
		s.output()
	}
	s.isDirty = false
}

// output writes the scaled pixel buffer to the hardware.
// Caller must hold the lock.
func (s *Service) output() {
	leds := s.dev.Leds(0)
	for i, p := range s.pixels {
		if i >= len(leds) {
			break
		}
		leds[i] = p.Scale(s.brightness).word()
	}
	if err := s.dev.Render(); err != nil {
		log.Printf("ws281x render error: %v", err)
	}
}

// markDirty records a buffer change and switches to the high push rate.
// Caller must hold the lock.
func (s *Service) markDirty() {
	s.isDirty = true
	s.lastChangeTime = time.Now()
	if !s.isInHighRateMode {
		s.isInHighRateMode = true
		s.currentRate = s.refreshRateHz
	}
}

// Len returns the number of pixels on the strip.
func (s *Service) Len() int {
	return len(s.pixels)
}

// Pixel returns the current logical value of a pixel.
// Out-of-range indexes return black.
func (s *Service) Pixel(i int) Color {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.pixels) {
		return Black
	}
	return s.pixels[i]
}

// SetPixel sets a pixel value. Out-of-range indexes are ignored.
func (s *Service) SetPixel(i int, c Color) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.pixels) {
		return
	}
	if s.pixels[i] != c {
		s.pixels[i] = c
		s.markDirty()
	}
}

// Fill sets every pixel to the same color.
func (s *Service) Fill(c Color) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.pixels {
		if s.pixels[i] != c {
			s.pixels[i] = c
			changed = true
		}
	}
	if changed {
		s.markDirty()
	}
}

// Clear blanks the whole strip.
func (s *Service) Clear() {
	s.Fill(Black)
}

// SetBrightness sets the global brightness scalar (0-255) applied at push time.
func (s *Service) SetBrightness(b uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.brightness != b {
		s.brightness = b
		s.markDirty()
	}
}

// Brightness returns the global brightness scalar.
func (s *Service) Brightness() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brightness
}

// Pixels returns a copy of the logical pixel buffer.
func (s *Service) Pixels() []Color {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Color, len(s.pixels))
	copy(out, s.pixels)
	return out
}

// IsActive returns whether the push loop is in high-rate mode.
func (s *Service) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isInHighRateMode
}

// GetCurrentRate returns the current push rate in Hz.
func (s *Service) GetCurrentRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRate
}

// Stop stops the push loop, blanks the strip, and releases the device.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopChan)
	s.running = false

	if s.dev != nil {
		// Final blackout frame
		leds := s.dev.Leds(0)
		for i := range leds {
			leds[i] = 0
		}
		if err := s.dev.Render(); err != nil {
			log.Printf("ws281x blackout render error: %v", err)
		}
		s.dev.Fini()
		s.dev = nil
	}

	log.Printf("💡 Strip service stopped")
}
