package enums

import "strings"

type TicketStatus string

const (
	TicketStatusReceived   TicketStatus = "received"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

func ParseTicketStatus(raw string) (TicketStatus, bool) {
	switch TicketStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case TicketStatusReceived:
		return TicketStatusReceived, true
	case TicketStatusInProgress:
		return TicketStatusInProgress, true
	case TicketStatusClosed:
		return TicketStatusClosed, true
	default:
		return "", false
	}
}

func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusReceived:
		return "Received"
	case TicketStatusInProgress:
		return "In progress"
	case TicketStatusClosed:
		return "Closed"
	default:
		return string(s)
	}
}
