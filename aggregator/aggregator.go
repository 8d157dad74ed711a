package aggregator

import "sync"

// OutputRequestRecord is the per-attempt latency record appended on each
// attempt's end.
type OutputRequestRecord struct {
	RequestLatencyMs float64
}

// RetryAttemptRecord is the wait that preceded a retry, appended before
// each retry sleep.
type RetryAttemptRecord struct {
	RetryWaitMs float64
}

// Entry pairs an attempt's latency with the wait that preceded it.
// RetryAttempt is nil for the first attempt of an invocation.
type Entry struct {
	RetryAttempt  *RetryAttemptRecord
	OutputRequest OutputRequestRecord
}

// RetriableOutputRequestRecord is the per-invocation roll-up an
// Aggregator's consumer ultimately observes: one Entry per attempt made,
// in order.
type RetriableOutputRequestRecord struct {
	OutputRequests []Entry
}

// Aggregator accumulates OutputRequestRecord and RetryAttemptRecord
// values and emits a RetriableOutputRequestRecord on completion. All
// operations are safe for concurrent use; the orchestrator uses a
// private inner Aggregator per invocation and folds it into the caller's
// outer Aggregator exactly once, after the final terminal event.
type Aggregator interface {
	// RecordOutwardsRequest appends a per-attempt latency record.
	RecordOutwardsRequest(requestLatencyMs float64)

	// RecordRetryAttempt records the wait that precedes the next
	// attempt; it is attached to the entry the next RecordOutwardsRequest
	// appends. A second call before then replaces the pending wait.
	RecordRetryAttempt(retryWaitMs float64)

	// RecordRetriableOutwardsRequest bulk-appends entries, used to fold
	// an inner aggregator's accumulated attempts into this one.
	RecordRetriableOutwardsRequest(entries []Entry)

	// Records returns a snapshot of every entry recorded so far.
	Records() []Entry
}

// mutexAggregator is the default Aggregator: a single mutex serializes
// every mutating operation; Records returns a copy so callers can't
// observe or corrupt internal state.
type mutexAggregator struct {
	mu      sync.Mutex
	entries []Entry

	pendingWait *RetryAttemptRecord
}

// New returns a fresh, empty Aggregator.
func New() Aggregator {
	return &mutexAggregator{}
}

func (a *mutexAggregator) RecordOutwardsRequest(requestLatencyMs float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, Entry{
		RetryAttempt:  a.pendingWait,
		OutputRequest: OutputRequestRecord{RequestLatencyMs: requestLatencyMs},
	})
	a.pendingWait = nil
}

func (a *mutexAggregator) RecordRetryAttempt(retryWaitMs float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pendingWait = &RetryAttemptRecord{RetryWaitMs: retryWaitMs}
}

func (a *mutexAggregator) RecordRetriableOutwardsRequest(entries []Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, entries...)
}

func (a *mutexAggregator) Records() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := make([]Entry, len(a.entries))
	copy(snapshot, a.entries)
	return snapshot
}

// Rollup builds the RetriableOutputRequestRecord for every entry recorded
// so far - the shape an invocation client publishes once on completion.
func Rollup(a Aggregator) RetriableOutputRequestRecord {
	return RetriableOutputRequestRecord{OutputRequests: a.Records()}
}
