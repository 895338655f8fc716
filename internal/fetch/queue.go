package fetch

// queued is a heap element: a pending request plus the monotonic sequence
// number that keeps same-priority requests strictly FIFO.
type queued struct {
	req *Request
	seq uint64
}

// requestQueue is a min-heap ordered by priority, then submission order.
// It implements heap.Interface; all access is guarded by the scheduler's
// mutex.
type requestQueue []*queued

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	if q[i].req.Priority != q[j].req.Priority {
		return q[i].req.Priority < q[j].req.Priority
	}
	return q[i].seq < q[j].seq
}

func (q requestQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *requestQueue) Push(x any) {
	*q = append(*q, x.(*queued))
}

func (q *requestQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
