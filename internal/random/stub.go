package random

// Stub is a Source that replays scripted values. When a script runs out it
// repeats its last value; an empty script yields zeros. Shuffle is a no-op
// so test fixtures keep their declared order.
type Stub struct {
	Ints   []int
	Floats []float64

	intIdx   int
	floatIdx int
}

func (s *Stub) Intn(n int) int {
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.intIdx]
	if s.intIdx < len(s.Ints)-1 {
		s.intIdx++
	}
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

func (s *Stub) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.floatIdx]
	if s.floatIdx < len(s.Floats)-1 {
		s.floatIdx++
	}
	return v
}

func (s *Stub) Shuffle(n int, swap func(i, j int)) {}
