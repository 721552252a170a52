package chm

import (
	"log"
	"sync/atomic"
)

var debugLog atomic.Value // stores *log.Logger

// SetDebugLog installs a process-wide debug sink. It may be called at most
// once; subsequent calls are ignored, matching the original library's
// single, global debug callback. Pass nil to mean "no debug output" (the
// default).
func SetDebugLog(l *log.Logger) {
	if debugLog.Load() != nil {
		return
	}
	if l == nil {
		return
	}
	debugLog.Store(l)
}

func debugf(format string, args ...interface{}) {
	v := debugLog.Load()
	if v == nil {
		return
	}
	v.(*log.Logger).Printf(format, args...)
}
