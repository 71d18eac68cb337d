package actuator

import (
	"errors"
	"sync"
)

// ErrActuatorBusy is returned when another alarm already owns the actuator.
var ErrActuatorBusy = errors.New("actuator is busy")

// Guard gives one owner exclusive use of the actuator.
type Guard struct {
	slot chan struct{}
}

// NewGuard returns a free guard.
func NewGuard() *Guard {
	return &Guard{slot: make(chan struct{}, 1)}
}

// Acquire takes the actuator without waiting. The returned release func is
// safe to call more than once.
func (g *Guard) Acquire() (func(), error) {
	select {
	case g.slot <- struct{}{}:
	default:
		return nil, ErrActuatorBusy
	}

	var once sync.Once

	return func() {
		once.Do(func() { <-g.slot })
	}, nil
}

// Busy reports whether the actuator is owned.
func (g *Guard) Busy() bool {
	return len(g.slot) > 0
}
