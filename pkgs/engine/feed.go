package engine

import "sync"

// feed fans values out to subscribers. Each subscriber drains its own queue
// on a dedicated goroutine, so publishing never blocks on a slow or
// re-entrant subscriber and every subscriber sees values in publish order.
type feed[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber[T]
}

func newFeed[T any]() *feed[T] {
	return &feed[T]{subs: make(map[int]*subscriber[T])}
}

// subscribe registers fn and returns a function that detaches it. Values
// queued before detaching are still delivered.
func (f *feed[T]) subscribe(fn func(T)) func() {
	sub := &subscriber[T]{fn: fn}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.loop()

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = sub
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			sub.close()
		})
	}
}

// publish queues v for every subscriber. Callers serialize publish calls to
// define the order.
func (f *feed[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		sub.push(v)
	}
}

// closeAll detaches every subscriber after its queue drains.
func (f *feed[T]) closeAll() {
	f.mu.Lock()
	subs := f.subs
	f.subs = make(map[int]*subscriber[T])
	f.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

type subscriber[T any] struct {
	fn     func(T)
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *subscriber[T]) loop() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, v := range batch {
			s.fn(v)
		}
	}
}
