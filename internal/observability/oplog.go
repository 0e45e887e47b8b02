package observability

import "log"

// Op names a pipeline operation. Log lines it emits carry the operation as a
// bracketed prefix so runs of one project can be followed across stages.
type Op string

// Log writes a formatted line under the operation prefix.
func (o Op) Log(format string, args ...any) {
	log.Printf("["+string(o)+"] "+format, args...)
}
