package events

import (
	"time"

	"github.com/mezonai/cubix/digest"
)

// EventType is an enum-like string type for stack engine events
type EventType string

const (
	EventTransactionAccepted EventType = "TransactionAccepted"
	EventFaceCompleted       EventType = "FaceCompleted"
	EventCubeCompleted       EventType = "CubeCompleted"
	EventLevelCreated        EventType = "LevelCreated"
)

// StackEvent is emitted after the change it describes has been committed.
type StackEvent interface {
	Type() EventType
	Timestamp() time.Time
	Level() uint32
	Hash() digest.Hash
}

type base struct {
	level     uint32
	hash      digest.Hash
	timestamp time.Time
}

func (b *base) Timestamp() time.Time { return b.timestamp }
func (b *base) Level() uint32        { return b.level }
func (b *base) Hash() digest.Hash    { return b.hash }

// TransactionAccepted is emitted once a transaction has been placed at level 0 and persisted.
type TransactionAccepted struct {
	base
	Slot int
}

func NewTransactionAccepted(txHash digest.Hash, slot int) *TransactionAccepted {
	return &TransactionAccepted{base: base{hash: txHash, timestamp: time.Now()}, Slot: slot}
}

func (e *TransactionAccepted) Type() EventType {
	return EventTransactionAccepted
}

// FaceCompleted carries the digest that was promoted into a Cube.
type FaceCompleted struct {
	base
	Index int
}

func NewFaceCompleted(level uint32, index int, faceDigest digest.Hash) *FaceCompleted {
	return &FaceCompleted{base: base{level: level, hash: faceDigest, timestamp: time.Now()}, Index: index}
}

func (e *FaceCompleted) Type() EventType {
	return EventFaceCompleted
}

// CubeCompleted carries the digest that was promoted into the next level.
type CubeCompleted struct {
	base
	Index int
}

func NewCubeCompleted(level uint32, index int, cubeDigest digest.Hash) *CubeCompleted {
	return &CubeCompleted{base: base{level: level, hash: cubeDigest, timestamp: time.Now()}, Index: index}
}

func (e *CubeCompleted) Type() EventType {
	return EventCubeCompleted
}

type LevelCreated struct {
	base
}

func NewLevelCreated(level uint32) *LevelCreated {
	return &LevelCreated{base: base{level: level, timestamp: time.Now()}}
}

func (e *LevelCreated) Type() EventType {
	return EventLevelCreated
}
