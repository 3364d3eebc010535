package runtime

import (
	goruntime "runtime"
	"sync/atomic"
	"time"
)

// Memory is managed by Go's tracing collector, which reclaims cyclic
// structures (closures capturing the objects that hold them) without any
// bookkeeping here. Thunks drop their closures once forced, which cuts most
// such cycles early. The counters below make that behaviour observable.

type heapCounters struct {
	thunksCreated    atomic.Int64
	thunksForced     atomic.Int64
	closuresReleased atomic.Int64
	objectsAllocated atomic.Int64
	objectsReclaimed atomic.Int64
	arraysAllocated  atomic.Int64
}

var heapStats heapCounters

// HeapStats is a snapshot of evaluator allocation counters.
type HeapStats struct {
	ThunksCreated    int64
	ThunksForced     int64
	ClosuresReleased int64
	ObjectsAllocated int64
	ObjectsReclaimed int64
	ArraysAllocated  int64
	HeapAlloc        uint64
}

// LiveObjects estimates objects not yet reclaimed.
func (s HeapStats) LiveObjects() int64 {
	return s.ObjectsAllocated - s.ObjectsReclaimed
}

// ReadHeapStats returns the current counters without collecting.
func ReadHeapStats() HeapStats {
	var mem goruntime.MemStats
	goruntime.ReadMemStats(&mem)
	return HeapStats{
		ThunksCreated:    heapStats.thunksCreated.Load(),
		ThunksForced:     heapStats.thunksForced.Load(),
		ClosuresReleased: heapStats.closuresReleased.Load(),
		ObjectsAllocated: heapStats.objectsAllocated.Load(),
		ObjectsReclaimed: heapStats.objectsReclaimed.Load(),
		ArraysAllocated:  heapStats.arraysAllocated.Load(),
		HeapAlloc:        mem.HeapAlloc,
	}
}

// Collect runs a full collection and waits up to wait for pending cleanups
// to be accounted, returning the resulting snapshot. Long-lived hosts call
// it between evaluations.
func Collect(wait time.Duration) HeapStats {
	before := heapStats.objectsReclaimed.Load()
	goruntime.GC()
	goruntime.GC()
	deadline := time.Now().Add(wait)
	last := before
	for time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
		cur := heapStats.objectsReclaimed.Load()
		if cur != last {
			last = cur
			continue
		}
		if cur != before {
			// Cleanups ran and the queue has drained.
			break
		}
	}
	return ReadHeapStats()
}

func trackObject(obj *ObjectValue) {
	heapStats.objectsAllocated.Add(1)
	goruntime.AddCleanup(obj, func(struct{}) {
		heapStats.objectsReclaimed.Add(1)
	}, struct{}{})
}
