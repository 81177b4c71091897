package audio

import (
	"sync"

	"murmur/log"
)

// chunkQueue collects PCM chunks from the capture callback. Chunks are
// copied on push. Once limit bytes are held, further chunks are dropped.
type chunkQueue struct {
	mu      sync.Mutex
	chunks  [][]byte
	size    int
	limit   int // 0 = unbounded
	dropped int
}

func newChunkQueue(limit int) *chunkQueue {
	return &chunkQueue{limit: limit}
}

func (q *chunkQueue) push(data []byte) {
	if len(data) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && q.size+len(data) > q.limit {
		q.dropped++
		if q.dropped == 1 {
			log.Warnf("recording reached %d bytes, dropping further audio", q.size)
		}
		return
	}
	c := make([]byte, len(data))
	copy(c, data)
	q.chunks = append(q.chunks, c)
	q.size += len(c)
}

// drain returns all queued chunks in arrival order and empties the queue.
func (q *chunkQueue) drain() ([][]byte, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	chunks, dropped := q.chunks, q.dropped
	q.chunks, q.size, q.dropped = nil, 0, 0
	return chunks, dropped
}

// Concat joins chunks in order into one buffer.
func Concat(chunks [][]byte) []byte {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
