package index

import "container/heap"

// candidate is a scored row waiting in the top-k heap
type candidate struct {
	ordinal  int
	distance float32
}

// worse reports whether a ranks after b: larger distance, or equal distance
// and later insertion
func worse(a, b candidate) bool {
	if a.distance != b.distance {
		return a.distance > b.distance
	}
	return a.ordinal > b.ordinal
}

// candidateQueue is a max-heap on rank, so the root is the current worst of
// the k kept so far
type candidateQueue []candidate

func (q candidateQueue) Len() int           { return len(q) }
func (q candidateQueue) Less(i, j int) bool { return worse(q[i], q[j]) }
func (q candidateQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *candidateQueue) Push(x any) {
	*q = append(*q, x.(candidate))
}

func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// offer keeps c if the queue holds fewer than k items or c beats the root
func (q *candidateQueue) offer(c candidate, k int) {
	if q.Len() < k {
		heap.Push(q, c)
		return
	}
	if worse((*q)[0], c) {
		(*q)[0] = c
		heap.Fix(q, 0)
	}
}

// drain empties the queue into best-first order
func (q *candidateQueue) drain() []candidate {
	out := make([]candidate, q.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(q).(candidate)
	}
	return out
}
