// Package domain defines the types and ports of the review ledger
package domain

import (
	"time"

	"constkit/internal/core/analyzer"
)

// Review is the recorded decision for one occurrence fingerprint
type Review struct {
	Fingerprint string         `json:"fingerprint"`
	State       analyzer.State `json:"state"`
	Note        string         `json:"note,omitempty"`
	FilePath    string         `json:"filePath,omitempty"`
	AtomicID    string         `json:"atomicId,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Event is one recorded transition; events are append-only
type Event struct {
	ID          string         `json:"id"`
	Fingerprint string         `json:"fingerprint"`
	From        analyzer.State `json:"from"`
	To          analyzer.State `json:"to"`
	Note        string         `json:"note,omitempty"`
	At          time.Time      `json:"at"`
}

// Transition asks the ledger to move a fingerprint to a new state
type Transition struct {
	Fingerprint string         `json:"fingerprint" validate:"required,hexadecimal,len=16"`
	To          analyzer.State `json:"state" validate:"required,oneof=REVIEWED APPLIED REJECTED"`
	Note        string         `json:"note" validate:"max=500"`

	// FilePath and AtomicID are informational, taken from the scan that produced the
	// fingerprint when known
	FilePath string `json:"filePath"`
	AtomicID string `json:"atomicId"`
}

// Filter narrows List
type Filter struct {
	State analyzer.State
	Limit int
}
