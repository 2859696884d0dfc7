package assist

// Hooks are the caller-registered side-effect callbacks the assistant can
// trigger. Nil callbacks are simply skipped, so a zero Hooks is valid.
//
// Callbacks fire synchronously on the backend's goroutine at the moment the
// action becomes known, which may be slightly ahead of the Turn emission that
// carries the same action. Callers that mutate UI state must marshal the call
// onto their own event loop.
type Hooks struct {
	// OpenSection navigates to a library section.
	OpenSection func(Section)

	// SetDarkMode switches the theme. true = dark, false = light.
	SetDarkMode func(bool)
}

// Apply fires the callback matching act and reports whether one was invoked.
// Unrecognized commands are ignored. setDarkMode fires only when the boolean
// payload is present.
func (h Hooks) Apply(act Action) bool {
	if sec, ok := act.Command.Section(); ok {
		if h.OpenSection != nil {
			h.OpenSection(sec)
			return true
		}
		return false
	}
	if act.Command == CommandSetDarkMode && act.Enabled != nil {
		if h.SetDarkMode != nil {
			h.SetDarkMode(*act.Enabled)
			return true
		}
	}
	return false
}
