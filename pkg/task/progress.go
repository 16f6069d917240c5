package task

import "sync"

// tracker turns raw phase reports into a non-decreasing series that reaches
// 1.0 exactly once, at completion.
type tracker struct {
	mu       sync.Mutex
	latest   float64
	emitted  float64
	finished bool
}

// report records a raw value. It may be called from any goroutine.
func (p *tracker) report(f float64) {
	if f != f { // NaN
		return
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	p.mu.Lock()
	if f > p.latest {
		p.latest = f
	}
	p.mu.Unlock()
}

// pending returns a value to emit if it advances past the last emitted one.
// Values of 1.0 are held back until complete is called.
func (p *tracker) pending() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return 0, false
	}
	v := p.latest
	if v >= 1 || v <= p.emitted {
		return 0, false
	}
	p.emitted = v
	return v, true
}

// complete returns true the first time it is called.
func (p *tracker) complete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return false
	}
	p.finished = true
	p.latest, p.emitted = 1, 1
	return true
}
