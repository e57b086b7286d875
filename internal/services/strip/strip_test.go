package strip

import (
	"testing"
	"time"
)

func createTestService() *Service {
	return NewService(Config{Enabled: false, LedCount: 10})
}

func TestNewServiceDefaults(t *testing.T) {
	s := NewService(Config{Enabled: false})

	if s.Len() != DefaultLedCount {
		t.Errorf("Len() = %d, want %d", s.Len(), DefaultLedCount)
	}
	if s.Brightness() != 255 {
		t.Errorf("Brightness() = %d, want 255", s.Brightness())
	}
	if s.GetCurrentRate() != 1 {
		t.Errorf("GetCurrentRate() = %d, want idle rate 1", s.GetCurrentRate())
	}
	if s.IsActive() {
		t.Error("New service should start in idle mode")
	}
}

func TestSetPixelAndPixel(t *testing.T) {
	s := createTestService()

	c := Color{R: 10, G: 20, B: 30}
	s.SetPixel(3, c)

	if got := s.Pixel(3); got != c {
		t.Errorf("Pixel(3) = %v, want %v", got, c)
	}
	if got := s.Pixel(0); got != Black {
		t.Errorf("Pixel(0) = %v, want black", got)
	}
}

func TestSetPixelOutOfRangeIgnored(t *testing.T) {
	s := createTestService()

	s.SetPixel(-1, Color{R: 255})
	s.SetPixel(10, Color{R: 255})

	if got := s.Pixel(-1); got != Black {
		t.Errorf("Pixel(-1) = %v, want black", got)
	}
	if got := s.Pixel(10); got != Black {
		t.Errorf("Pixel(10) = %v, want black", got)
	}
}

func TestFillAndClear(t *testing.T) {
	s := createTestService()

	c := Color{R: 1, G: 2, B: 3}
	s.Fill(c)
	for i := 0; i < s.Len(); i++ {
		if s.Pixel(i) != c {
			t.Fatalf("Pixel(%d) = %v, want %v", i, s.Pixel(i), c)
		}
	}

	s.Clear()
	for i := 0; i < s.Len(); i++ {
		if s.Pixel(i) != Black {
			t.Fatalf("Pixel(%d) = %v, want black after Clear", i, s.Pixel(i))
		}
	}
}

func TestPixelsReturnsCopy(t *testing.T) {
	s := createTestService()
	s.SetPixel(0, Color{R: 5})

	pixels := s.Pixels()
	pixels[0] = Color{R: 99}

	if got := s.Pixel(0); got != (Color{R: 5}) {
		t.Errorf("mutating the returned slice changed the buffer: %v", got)
	}
}

func TestChangeSwitchesToHighRate(t *testing.T) {
	s := NewService(Config{Enabled: false, LedCount: 10, RefreshRateHz: 60, IdleRateHz: 1})

	s.SetPixel(0, Color{R: 1})

	if !s.IsActive() {
		t.Error("A buffer change should switch to high-rate mode")
	}
	if s.GetCurrentRate() != 60 {
		t.Errorf("GetCurrentRate() = %d, want 60", s.GetCurrentRate())
	}
}

func TestRedundantWritesStayIdle(t *testing.T) {
	s := createTestService()

	s.SetPixel(0, Black)
	s.SetBrightness(255)
	s.Fill(Black)

	if s.IsActive() {
		t.Error("Writes that change nothing should not leave idle mode")
	}
}

func TestIdleReturnAfterHighRateDuration(t *testing.T) {
	s := NewService(Config{
		Enabled:          false,
		LedCount:         10,
		RefreshRateHz:    60,
		IdleRateHz:       1,
		HighRateDuration: 20 * time.Millisecond,
	})

	s.SetPixel(0, Color{R: 1})
	if !s.IsActive() {
		t.Fatal("expected high-rate mode after a change")
	}

	// Drain the dirty flag, wait out the window, then check the downshift.
	s.processPush()
	time.Sleep(30 * time.Millisecond)
	s.processPush()

	if s.IsActive() {
		t.Error("Service should return to idle after the high-rate window")
	}
	if s.GetCurrentRate() != 1 {
		t.Errorf("GetCurrentRate() = %d, want idle rate 1", s.GetCurrentRate())
	}
}

func TestInitializeSimulationMode(t *testing.T) {
	s := createTestService()

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() in simulation mode failed: %v", err)
	}
	defer s.Stop()

	// Second Initialize is a no-op
	if err := s.Initialize(); err != nil {
		t.Fatalf("Second Initialize() failed: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := createTestService()
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	s.Stop()
	s.Stop()
}

func TestColorScale(t *testing.T) {
	c := Color{R: 200, G: 100, B: 50}

	if got := c.Scale(255); got != c {
		t.Errorf("Scale(255) = %v, want %v", got, c)
	}
	if got := c.Scale(0); got != Black {
		t.Errorf("Scale(0) = %v, want black", got)
	}

	half := c.Scale(128)
	if half.R < 99 || half.R > 101 {
		t.Errorf("Scale(128).R = %d, want ~100", half.R)
	}
}

func TestColorWord(t *testing.T) {
	c := Color{R: 0x1A, G: 0x2B, B: 0x3C}
	if got := c.word(); got != 0x1A2B3C {
		t.Errorf("word() = %#x, want 0x1A2B3C", got)
	}
}
