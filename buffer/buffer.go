package buffer

import "fmt"

// ReplayBuffer keeps the most recent self-play games, bounded by a game
// count. It is owned by the trainer and not safe for concurrent use.
type ReplayBuffer struct {
	records  []Record
	capacity int
}

func New(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		panic("buffer capacity must be positive")
	}
	return &ReplayBuffer{capacity: capacity}
}

// AddGeneration appends records in order. Nothing is added if any example is
// malformed.
func (b *ReplayBuffer) AddGeneration(records []Record) error {
	for _, r := range records {
		for _, ex := range r.Examples {
			if err := validateExample(ex); err != nil {
				return fmt.Errorf("invalid example in game %s: %w", r.ID, err)
			}
		}
	}
	b.records = append(b.records, records...)
	return nil
}

// Evict drops the oldest games until the buffer fits its capacity and
// returns how many were dropped.
func (b *ReplayBuffer) Evict() int {
	excess := len(b.records) - b.capacity
	if excess <= 0 {
		return 0
	}
	clear(b.records[:excess])
	b.records = b.records[excess:]
	return excess
}

// Grow raises the capacity by step without exceeding limit.
func (b *ReplayBuffer) Grow(step, limit int) {
	if b.capacity < limit {
		b.capacity = min(b.capacity+step, limit)
	}
}

func (b *ReplayBuffer) Capacity() int { return b.capacity }

// Len returns the number of buffered games.
func (b *ReplayBuffer) Len() int { return len(b.records) }

// Examples returns the number of buffered examples, duplicates included.
func (b *ReplayBuffer) Examples() int {
	n := 0
	for _, r := range b.records {
		n += len(r.Examples)
	}
	return n
}

// Records returns the buffered games, oldest first.
func (b *ReplayBuffer) Records() []Record {
	return append([]Record(nil), b.records...)
}
