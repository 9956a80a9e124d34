// Package presenter holds the side effects the agent triggers but never waits
// on: showing a warning and powering off. The override dialog is opened from
// inside the warning popup (see internal/tui).
package presenter

// WarningPresenter shows a warning to the user.
type WarningPresenter interface {
	PresentWarning(title, body string, overrideOfferable bool) error
}

// ShutdownRequester powers the machine off.
type ShutdownRequester interface {
	ForceShutdown() error
}
