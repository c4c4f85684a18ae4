package game

import "github.com/rs/zerolog/log"

// Notifier receives fire-and-forget side effects of engine transitions.
// Calls are made in transition order, never while the engine's state lock is
// held, so implementations may read Snapshot but must not call Reveal or
// Reset synchronously.
type Notifier interface {
	OnFlip()
	OnMatchSuccess()
	OnMatchFail()
	OnGameComplete()
}

// CompletionPresenter is an optional Notifier extension for the completion
// dialog.
type CompletionPresenter interface {
	PresentCompletion()
	DismissCompletion()
}

// RoundObserver is an optional Notifier extension told which round was won.
// It is delivered after the completion dialog is presented.
// The round is captured with the winning transition, so a Reset racing the
// delivery does not change it.
type RoundObserver interface {
	OnRoundWon(round uint64, matchedPairs int)
}

// NopNotifier ignores every notification.
type NopNotifier struct{}

func (NopNotifier) OnFlip()         {}
func (NopNotifier) OnMatchSuccess() {}
func (NopNotifier) OnMatchFail()    {}
func (NopNotifier) OnGameComplete() {}

// Notifiers fans each notification out to every member in order. A member
// that panics is logged and skipped; later members still run.
type Notifiers []Notifier

func guard(name string, i int, f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("notification", name).Int("member", i).Msg("notifier failed")
		}
	}()
	f()
}

func (ns Notifiers) OnFlip() {
	for i, n := range ns {
		guard("OnFlip", i, n.OnFlip)
	}
}

func (ns Notifiers) OnMatchSuccess() {
	for i, n := range ns {
		guard("OnMatchSuccess", i, n.OnMatchSuccess)
	}
}

func (ns Notifiers) OnMatchFail() {
	for i, n := range ns {
		guard("OnMatchFail", i, n.OnMatchFail)
	}
}

func (ns Notifiers) OnGameComplete() {
	for i, n := range ns {
		guard("OnGameComplete", i, n.OnGameComplete)
	}
}

func (ns Notifiers) PresentCompletion() {
	for i, n := range ns {
		if p, ok := n.(CompletionPresenter); ok {
			guard("PresentCompletion", i, p.PresentCompletion)
		}
	}
}

func (ns Notifiers) DismissCompletion() {
	for i, n := range ns {
		if p, ok := n.(CompletionPresenter); ok {
			guard("DismissCompletion", i, p.DismissCompletion)
		}
	}
}

func (ns Notifiers) OnRoundWon(round uint64, matchedPairs int) {
	for i, n := range ns {
		if o, ok := n.(RoundObserver); ok {
			guard("OnRoundWon", i, func() { o.OnRoundWon(round, matchedPairs) })
		}
	}
}
