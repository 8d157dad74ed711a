package aggregator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordOutwardsRequestAppendsEntry(t *testing.T) {
	a := New()
	a.RecordOutwardsRequest(12.5)

	records := a.Records()
	require.Len(t, records, 1)
	require.Nil(t, records[0].RetryAttempt)
	require.Equal(t, 12.5, records[0].OutputRequest.RequestLatencyMs)
}

func TestPendingRetryAttemptAttachesToNextEntryOnly(t *testing.T) {
	a := New()
	a.RecordRetryAttempt(500)
	a.RecordOutwardsRequest(10)
	a.RecordOutwardsRequest(20)

	records := a.Records()
	require.Len(t, records, 2)
	require.NotNil(t, records[0].RetryAttempt)
	require.Equal(t, 500.0, records[0].RetryAttempt.RetryWaitMs)
	require.Nil(t, records[1].RetryAttempt)
}

func TestAggregatorCompletenessMatchesAttemptCount(t *testing.T) {
	a := New()

	a.RecordOutwardsRequest(10) // attempt 0
	a.RecordRetryAttempt(500)
	a.RecordOutwardsRequest(20) // attempt 1
	a.RecordRetryAttempt(1000)
	a.RecordOutwardsRequest(30) // attempt 2

	rollup := Rollup(a)
	require.Len(t, rollup.OutputRequests, 3)
	require.Nil(t, rollup.OutputRequests[0].RetryAttempt)
	require.Equal(t, 500.0, rollup.OutputRequests[1].RetryAttempt.RetryWaitMs)
	require.Equal(t, 1000.0, rollup.OutputRequests[2].RetryAttempt.RetryWaitMs)
}

func TestRecordRetriableOutwardsRequestBulkAppends(t *testing.T) {
	inner := New()
	inner.RecordOutwardsRequest(5)
	inner.RecordOutwardsRequest(6)

	outer := New()
	outer.RecordRetriableOutwardsRequest(inner.Records())

	require.Len(t, outer.Records(), 2)
}

func TestRecordsReturnsSnapshotNotSharedSlice(t *testing.T) {
	a := New()
	a.RecordOutwardsRequest(1)

	snapshot := a.Records()
	snapshot[0].OutputRequest.RequestLatencyMs = 999

	require.Equal(t, 1.0, a.Records()[0].OutputRequest.RequestLatencyMs)
}

func TestAggregatorSerializesConcurrentWrites(t *testing.T) {
	a := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.RecordOutwardsRequest(1)
		}()
	}
	wg.Wait()

	require.Len(t, a.Records(), 100)
}
