package scheduler

import "container/heap"

// jobQueue min-heap of pending jobs by next run; ties by job id
type jobQueue []*jobState

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	a, b := q[i].snapshot.NextRun, q[j].snapshot.NextRun
	if a.Equal(b) {
		return q[i].spec.ID < q[j].spec.ID
	}
	return a.Before(b)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x interface{}) {
	st := x.(*jobState)
	st.index = len(*q)
	*q = append(*q, st)
}

func (q *jobQueue) Pop() interface{} {
	old := *q
	n := len(old)
	st := old[n-1]
	old[n-1] = nil
	st.index = -1
	*q = old[:n-1]
	return st
}

func (q jobQueue) peek() *jobState {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

func (q *jobQueue) remove(st *jobState) {
	if st.index >= 0 && st.index < len(*q) {
		heap.Remove(q, st.index)
	}
}
