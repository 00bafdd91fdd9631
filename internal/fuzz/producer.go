package fuzz

// Producer derives bounded parameters from the tail of a fuzz input,
// leaving the front of the input untouched as payload.
// Parameters are pure functions of the input, so minimizing the
// payload keeps the parameters stable.
type Producer struct {
	data []byte
	// Unread bytes at the front of data.
	n int
}

// NewProducer returns a Producer reading parameters from the end of data.
// data is never modified.
func NewProducer(data []byte) *Producer {
	p := &Producer{}
	p.Reset(data)
	return p
}

// Reset binds the producer to data and rewinds it.
func (p *Producer) Reset(data []byte) {
	p.data = data
	p.n = len(data)
}

// Uint32 returns a value in [min, max].
// Bytes are consumed from the end of the input, the last byte being the most
// significant, until the range is covered. When the input is exhausted the
// missing bytes are zero, so Uint32 always succeeds.
// If max <= min, min is returned and nothing is consumed.
func (p *Producer) Uint32(min, max uint32) uint32 {
	if max <= min {
		return min
	}
	rng := max - min
	var v uint32
	for rolling := rng; rolling > 0 && p.n > 0; rolling >>= 8 {
		p.n--
		v = v<<8 | uint32(p.data[p.n])
	}
	if rng == ^uint32(0) {
		return v
	}
	return min + v%(rng+1)
}

// Remaining returns the number of unread bytes.
func (p *Producer) Remaining() int {
	return p.n
}

// Payload returns the unread bytes at the front of the input.
func (p *Producer) Payload() []byte {
	return p.data[:p.n:p.n]
}
