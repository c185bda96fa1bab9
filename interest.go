package nio

import "github.com/meridiantrading/nio/internal"

// Interest is a bitmask of readiness conditions to watch or report. The
// values are the platform poller's native bits; the selector treats them as
// opaque and they combine with bitwise or.
type Interest = internal.PollFlags

const (
	// Readable reports that a read would not block.
	Readable = internal.ReadFlags
	// Writable reports that a write would not block.
	Writable = internal.WriteFlags
)
