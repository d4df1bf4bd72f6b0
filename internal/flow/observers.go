package flow

import "sync"

// observers is a list of state listeners; callers notify outside their own lock
type observers[T any] struct {
	mu     sync.Mutex
	fns    map[uint64]func(T)
	order  []uint64
	nextID uint64
}

func (o *observers[T]) add(fn func(T)) func() {
	o.mu.Lock()
	if o.fns == nil {
		o.fns = make(map[uint64]func(T))
	}
	id := o.nextID
	o.nextID++
	o.fns[id] = fn
	o.order = append(o.order, id)
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.fns, id)
			for i, oid := range o.order {
				if oid == id {
					o.order = append(o.order[:i], o.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (o *observers[T]) notify(v T) {
	o.mu.Lock()
	fns := make([]func(T), 0, len(o.order))
	for _, id := range o.order {
		fns = append(fns, o.fns[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
