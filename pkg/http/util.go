package http

import (
	"time"

	xutil "Infinity/pkg/util"
)

// ParseSince parses an absolute time or a look-back duration relative to now.
func ParseSince(s string, now time.Time) (time.Time, bool) { return xutil.ParseSince(s, now) }
