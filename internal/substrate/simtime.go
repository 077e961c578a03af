package substrate

import (
	"math/rand"
	"time"
)

// UniformDelay draws a uniform integer number of simulated minutes in
// [lo, hi] and scales it to a real-time duration by the state's time
// multiplier, following kasa.cpp/urzednik.cpp's
// `delay_minutes * 60000 / time_mul` milliseconds, floored at 1ms so a
// misconfigured huge multiplier never yields a zero sleep that spins.
func (s *AdmissionState) UniformDelay(rng *rand.Rand, lo, hi int) time.Duration {
	minutes := lo
	if hi > lo {
		minutes = lo + rng.Intn(hi-lo+1)
	}
	mul := s.TimeMul.Load()
	if mul <= 0 {
		mul = 1
	}
	ms := int64(minutes) * 60_000 / mul
	if ms <= 0 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}
