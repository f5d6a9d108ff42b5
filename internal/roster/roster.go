package roster

import "sync"

// Roster holds the current student list. Readers get whole snapshots and
// writers swap whole snapshots; the last Replace wins.
type Roster struct {
	mu       sync.RWMutex
	students []Student
}

// New creates a roster seeded with list.
func New(list []Student) *Roster {
	return &Roster{students: list}
}

// Get returns the current snapshot. It must not be modified.
func (r *Roster) Get() []Student {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.students
}

// Replace swaps in a new snapshot.
func (r *Roster) Replace(list []Student) {
	r.mu.Lock()
	r.students = list
	r.mu.Unlock()
}

// Find returns the student with id from the current snapshot.
func (r *Roster) Find(id int64) (Student, bool) {
	for _, s := range r.Get() {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}
