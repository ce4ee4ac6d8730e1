package model

// OrderID identifies an order inside one broker instance.
type OrderID uint64

// ExecutionID identifies an execution inside one broker instance.
type ExecutionID uint64

// PositionID identifies a position inside one broker instance.
type PositionID uint64

// OCOID groups orders that cancel each other. The empty value means no group.
type OCOID string

// IDGenerator hands out monotonically increasing identifiers starting at 1.
// It belongs to one broker and is not safe for concurrent use.
type IDGenerator struct {
	next uint64
}

// Next returns the next identifier.
func (g *IDGenerator) Next() uint64 {
	g.next++
	return g.next
}

// Last returns the most recently issued identifier, or 0.
func (g *IDGenerator) Last() uint64 {
	return g.next
}
