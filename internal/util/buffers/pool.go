// Package buffers provides reusable byte buffers for the content copy
// loop. Streaming several files concurrently would otherwise allocate one
// copy buffer per transfer and churn the GC.
package buffers

import (
	"sync"
	"sync/atomic"

	"github.com/drivebridge/drivebridge/internal/constants"
)

// Pool monitoring counters
var (
	copyAllocations int64 // Total copy buffer allocations (new creates)
	copyGets        int64 // Total Get calls (gets - allocations = reuses)
)

// copyPool provides buffers sized for the content streaming loop.
var copyPool = &sync.Pool{
	New: func() interface{} {
		atomic.AddInt64(&copyAllocations, 1)
		buf := make([]byte, constants.DownloadCopyBufferSize)
		return &buf
	},
}

// GetCopyBuffer retrieves a copy buffer from the pool.
// The buffer must be returned with PutCopyBuffer when done.
//
// Usage:
//
//	buf := buffers.GetCopyBuffer()
//	defer buffers.PutCopyBuffer(buf)
//	n, err := src.Read(*buf)
//	// Use (*buf)[:n] for actual data
func GetCopyBuffer() *[]byte {
	atomic.AddInt64(&copyGets, 1)
	return copyPool.Get().(*[]byte)
}

// PutCopyBuffer returns a buffer to the pool for reuse.
// The buffer should not be used after calling this function.
// Only buffers of the correct size will be pooled.
func PutCopyBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.DownloadCopyBufferSize {
		copyPool.Put(buf)
	}
}

// Stats returns allocation and reuse counts for debug logging.
func Stats() (allocations, reuses int64) {
	allocations = atomic.LoadInt64(&copyAllocations)
	reuses = atomic.LoadInt64(&copyGets) - allocations
	if reuses < 0 {
		reuses = 0
	}
	return allocations, reuses
}
