package ports

import "time"

// SyncMetrics receives propagation and derivation events
type SyncMetrics interface {
	OperationQueued(kind string, depth int)
	OperationProcessed(kind string, targets int, elapsed time.Duration)
	OperationDiscarded(kind string)
	TargetWritten(kind string)
	TargetFailed(kind, reason string)
	DocumentDerived(ok bool)
}
