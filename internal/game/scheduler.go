package game

import "time"

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d on some goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// WallClock returns the production scheduler backed by time.AfterFunc.
func WallClock() Scheduler { return wallClock{} }
