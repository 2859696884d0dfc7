package assist

import "context"

// Backend produces a stream of Turn snapshots for a prompt.
// Snapshots are sent to the returned channel; it is closed when the stream
// ends. The wait function blocks until the stream is complete and returns the
// terminal error, if any.
//
// Implementations must close the channel (and not panic) even when ctx is
// cancelled, so callers can always range over it safely. At most one terminal
// signal is delivered, through the wait function.
type Backend interface {
	// Name returns the backend identifier, e.g. "cloud", "stub".
	Name() string

	// Stream starts an assistant turn for the given prompt.
	Stream(ctx context.Context, prompt string, opts StreamOptions) (<-chan Turn, func() error)
}
