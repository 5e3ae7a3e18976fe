package mqtt

// bufferedMsg is an outgoing message held while the broker is unreachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds the newest capacity messages in publish order.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type ringBuffer struct {
	slots    []bufferedMsg
	capacity int
	oldest   int
	size     int
	dropped  int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{slots: make([]bufferedMsg, capacity), capacity: capacity}
}

// push queues msg. When full the oldest message is overwritten, and push
// reports true for the first overwrite since the last drain so the caller can
// warn once per outage.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	if r.size < r.capacity {
		r.slots[(r.oldest+r.size)%r.capacity] = msg
		r.size++
		return false
	}
	r.slots[r.oldest] = msg
	r.oldest = (r.oldest + 1) % r.capacity
	r.dropped++
	return r.dropped == 1
}

// drain empties the buffer, returning the held messages oldest first and the
// number lost to overflow.
func (r *ringBuffer) drain() ([]bufferedMsg, int) {
	dropped := r.dropped
	if r.size == 0 {
		r.dropped = 0
		return nil, dropped
	}
	out := make([]bufferedMsg, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.slots[(r.oldest+i)%r.capacity])
		r.slots[(r.oldest+i)%r.capacity] = bufferedMsg{}
	}
	r.oldest, r.size, r.dropped = 0, 0, 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.size
}
