package progress

// Sink consumes node-completion events. Implementations must be safe for
// concurrent use and must return quickly; a slow sink stalls the
// coordinator's collection loop.
type Sink interface {
	Consume(evt Event)
}
