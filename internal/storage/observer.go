package storage

import "time"

// QueryObserver receives the latency and outcome of each store operation.
type QueryObserver interface {
	ObserveQuery(operation string, elapsed time.Duration, err error)
}

// QueryObserverFunc adapts a function to QueryObserver.
type QueryObserverFunc func(operation string, elapsed time.Duration, err error)

// ObserveQuery calls f.
func (f QueryObserverFunc) ObserveQuery(operation string, elapsed time.Duration, err error) {
	f(operation, elapsed, err)
}
