package services

// WaitingQueue is the FIFO of users seeking a partner. First to wait is
// first matched; that is the sole fairness policy.
//
// Like the registry it is guarded by the PairingService mutex, not by a
// lock of its own.
type WaitingQueue struct {
	ids     []string
	members map[string]struct{}
}

func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{members: make(map[string]struct{})}
}

// Enqueue appends id to the tail. Returns ErrAlreadyWaiting if id is
// already queued.
func (q *WaitingQueue) Enqueue(id string) error {
	if _, ok := q.members[id]; ok {
		return ErrAlreadyWaiting
	}
	q.ids = append(q.ids, id)
	q.members[id] = struct{}{}
	return nil
}

// DequeueHead pops and returns the earliest-waiting id, or false if the
// queue is empty.
func (q *WaitingQueue) DequeueHead() (string, bool) {
	if len(q.ids) == 0 {
		return "", false
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	delete(q.members, id)
	return id, true
}

// Remove deletes id from the queue if present; no-op otherwise.
func (q *WaitingQueue) Remove(id string) bool {
	if _, ok := q.members[id]; !ok {
		return false
	}
	delete(q.members, id)
	for i, queued := range q.ids {
		if queued == id {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			break
		}
	}
	return true
}

func (q *WaitingQueue) Contains(id string) bool {
	_, ok := q.members[id]
	return ok
}

func (q *WaitingQueue) Len() int {
	return len(q.ids)
}
