package chat

// queue is an unbounded FIFO of input parcels. Submitting never blocks the
// producer for longer than a channel handoff: a burst accumulates in the
// backlog instead of applying backpressure to connections.
type queue struct {
	in  chan InputParcel
	out chan InputParcel
}

func newQueue() *queue {
	q := &queue{
		in:  make(chan InputParcel),
		out: make(chan InputParcel),
	}
	go q.pump()
	return q
}

func (q *queue) pump() {
	var backlog []InputParcel
	for {
		if len(backlog) == 0 {
			p, ok := <-q.in
			if !ok {
				close(q.out)
				return
			}
			backlog = append(backlog, p)
		}

		select {
		case p, ok := <-q.in:
			if !ok {
				for _, pending := range backlog {
					q.out <- pending
				}
				close(q.out)
				return
			}
			backlog = append(backlog, p)
		case q.out <- backlog[0]:
			backlog = backlog[1:]
		}
	}
}

// Push enqueues a parcel. Must not be called after Close.
func (q *queue) Push(p InputParcel) {
	q.in <- p
}

// Close ends the queue; buffered parcels are still delivered before the out
// channel closes.
func (q *queue) Close() {
	close(q.in)
}
