package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler lets numerator out of every denominator events through.
// A zero ratio disables sampling and lets everything through.
type ratioSampler struct {
	mu          sync.Mutex
	numerator   int
	denominator int
	counter     int
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set replaces the ratio and resets the window.
func (s *ratioSampler) Set(numerator, denominator int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter = 0
	if numerator <= 0 || denominator <= 0 {
		s.numerator, s.denominator = 0, 0
		return
	}
	s.numerator, s.denominator = min(numerator, denominator), denominator
}

// Allow reports whether the current event passes.
func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denominator == 0 {
		return true
	}
	s.counter = s.counter%s.denominator + 1
	return s.counter <= s.numerator
}

// parseRatioSpec accepts "n/d" or a bare "d" meaning 1/d.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if num, den, ok := strings.Cut(spec, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 == nil && err2 == nil {
			return n, d
		}
		return 0, 0
	}
	if v, err := strconv.Atoi(spec); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
