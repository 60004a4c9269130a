package observability

import "runtime/debug"

// RecoverPanic is deferred around background work, such as scheduled
// jobs, that must never take the process down. A recovered panic is
// logged with its stack trace and swallowed; scope names the work that
// panicked.
func RecoverPanic(logger *Logger, scope string) {
	if r := recover(); r != nil {
		logger.WithFields(map[string]interface{}{
			"panic": r,
			"scope": scope,
			"stack": string(debug.Stack()),
		}).Error("panic recovered")
	}
}
