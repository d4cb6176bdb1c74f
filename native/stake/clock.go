package stake

import "time"

// SystemClock reads wall-clock time in whole seconds.
type SystemClock struct{}

// Now returns the current unix time.
func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }
