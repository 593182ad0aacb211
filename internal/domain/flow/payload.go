package flow

import (
	"encoding/json"
	"fmt"
)

// Action identifiers attached to interactive elements. History scanning
// recognizes system-authored messages by these IDs, so they are part of
// the durable wire format and must not change while chains are in flight.
const (
	ActionIDSettlementApprove = "settlement_approve_button"
	ActionIDDeadlineComplete  = "deadline_complete_button"
)

// Sentinel texts recognized by plain text matching.
const (
	ReminderPrefix     = "⏰ *Reminder*"
	CompletionSentinel = "✅ All approvals are complete!"
	CompletedPrefix    = "✅"
)

// ActionPayload is the opaque value embedded in a settlement approval
// button. It is the only durable pointer from a posted message back to
// its workflow step; everything else is reconstructed from the registry.
type ActionPayload struct {
	Kind   string `json:"kind"`
	Step   int    `json:"step"`
	Period string `json:"period"`
	Title  string `json:"title,omitempty"`
	// Day is the trigger day-of-month the chain started on. It lets the
	// batch-specific title be recomputed when Title is absent.
	Day int `json:"day,omitempty"`
}

// Encode serializes the payload for embedding in a button value.
func (p ActionPayload) Encode() string {
	raw, _ := json.Marshal(p)
	return string(raw)
}

// DecodeActionPayload parses and validates a button value. Any failure
// means the message cannot be treated as an active step.
func DecodeActionPayload(raw string) (*ActionPayload, error) {
	var p ActionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("malformed action payload: %w", err)
	}
	if p.Kind == "" {
		return nil, fmt.Errorf("action payload missing kind")
	}
	if p.Step < 0 {
		return nil, fmt.Errorf("action payload has negative step %d", p.Step)
	}
	if _, err := ParsePeriod(p.Period); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeadlinePayload is the button value for groupware deadline alerts.
// Owner and transfer-manager identities are resolved from the registry
// at click time rather than trusted from the payload.
type DeadlinePayload struct {
	Company string `json:"company"`
	Date    string `json:"date"`
}

// Encode serializes the payload for embedding in a button value.
func (p DeadlinePayload) Encode() string {
	raw, _ := json.Marshal(p)
	return string(raw)
}

// DecodeDeadlinePayload parses and validates a deadline button value.
func DecodeDeadlinePayload(raw string) (*DeadlinePayload, error) {
	var p DeadlinePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("malformed deadline payload: %w", err)
	}
	if p.Company == "" {
		return nil, fmt.Errorf("deadline payload missing company")
	}
	return &p, nil
}
