package enums

import "strings"

type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

func ParsePriority(raw string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityLow:
		return PriorityLow, true
	default:
		return "", false
	}
}

func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityLow:
		return "Low"
	default:
		return string(p)
	}
}
