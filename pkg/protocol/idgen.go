package protocol

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces request ids. Implementations must be safe for
// concurrent use and never repeat a value during their lifetime.
type IDGenerator interface {
	NextID() interface{}
}

// UUIDGenerator returns random (version 4) UUID strings.
type UUIDGenerator struct{}

// NextID implements IDGenerator.
func (UUIDGenerator) NextID() interface{} {
	return uuid.NewString()
}

// SequenceGenerator returns increasing integers, or "<prefix>-<n>" strings
// when a prefix is set.
type SequenceGenerator struct {
	prefix string
	last   atomic.Int64
}

// NewSequenceGenerator creates a counter starting at 1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NextID implements IDGenerator.
func (g *SequenceGenerator) NextID() interface{} {
	n := g.last.Add(1)
	if g.prefix == "" {
		return n
	}
	return fmt.Sprintf("%s-%d", g.prefix, n)
}
