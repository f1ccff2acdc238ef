package audio

import "sync"

// Queue is an unbounded FIFO of audio chunks shared between the device
// callback and the consumer
type Queue struct {
	mu     sync.Mutex
	chunks [][]float32
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Put appends a chunk
func (q *Queue) Put(chunk []float32) {
	q.mu.Lock()
	q.chunks = append(q.chunks, chunk)
	q.mu.Unlock()
}

// Drain removes and returns all queued chunks in arrival order
func (q *Queue) Drain() [][]float32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.chunks
	q.chunks = nil
	return out
}

// Len returns the number of queued chunks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// Concat joins chunks into one contiguous sample array
func Concat(chunks [][]float32) []float32 {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]float32, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
