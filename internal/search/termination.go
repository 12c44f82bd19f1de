package search

// Termination protocol:
//   - Acquire pops a directory and increments active in one critical section.
//   - The worker scans outside the lock and pushes every child it finds.
//   - Release decrements active and, still holding the lock, declares
//     termination if the queue is empty and nobody is active.
//
// A worker that is still scanning counts as active, so a sibling can never
// see the queue empty and finish while children remain to be pushed.

// Acquire blocks until a directory is available, then hands it to the caller
// and marks the caller active. It returns ("", false) once termination has
// been declared or the queue was stopped.
func (q *WorkQueue) Acquire() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.lenLocked() == 0 && !q.terminated && !q.stopped {
		q.cond.Wait()
	}
	if q.terminated || q.stopped {
		return "", false
	}
	dir, _ := q.popLocked()
	q.active++
	return dir, true
}

// Release must be called exactly once per successful Acquire, after every
// child of the acquired directory has been pushed. It returns true when this
// call declared termination.
func (q *WorkQueue) Release() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == 0 {
		panic("search: Release without matching Acquire")
	}
	q.active--
	if q.lenLocked() == 0 && q.active == 0 && !q.terminated && !q.stopped {
		q.terminated = true
		q.cond.Broadcast()
		return true
	}
	return false
}

// Stop wakes every blocked worker and makes further Acquire calls fail.
// A stopped queue never declares termination: a stopped search did not
// finish, even if the last Release finds the queue empty.
func (q *WorkQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Terminated reports whether termination has been declared.
func (q *WorkQueue) Terminated() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.terminated
}

// Stopped reports whether Stop was called.
func (q *WorkQueue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// Active returns the number of workers currently scanning a directory.
func (q *WorkQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}
