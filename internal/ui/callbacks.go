package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
)

const (
	CallbackSubmitTicket = "ticket:new"

	CallbackPriorityHigh = "prio:high"
	CallbackPriorityLow  = "prio:low"

	CallbackFileYes = "file:yes"
	CallbackFileNo  = "file:no"

	CallbackMessageYes = "msg:yes"
	CallbackMessageNo  = "msg:no"

	CallbackAdminBan     = "adm:ban"
	CallbackAdminMute    = "adm:mute"
	CallbackAdminUnban   = "adm:unban"
	CallbackAdminTickets = "adm:tickets"
	CallbackAdminStats   = "adm:stats"
	CallbackAdminCancel  = "adm:cancel"

	callbackPrefixPriority = "prio"
	callbackPrefixAnswer   = "adm:answer"
	callbackPrefixStatus   = "status"
)

func AnswerCallback(ticketID int64) string {
	return fmt.Sprintf("%s:%d", callbackPrefixAnswer, ticketID)
}

func StatusCallback(ticketID int64, status enums.TicketStatus) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefixStatus, ticketID, status)
}

// ParsePriorityCallback returns the raw priority value of a prio:<value>
// button.
func ParsePriorityCallback(data string) (string, bool) {
	value, ok := strings.CutPrefix(data, callbackPrefixPriority+":")
	return value, ok
}

func ParseAnswerCallback(data string) (int64, bool) {
	raw, ok := strings.CutPrefix(data, callbackPrefixAnswer+":")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ParseStatusCallback splits status:<id>:<status>. The status is returned
// unvalidated.
func ParseStatusCallback(data string) (int64, string, bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] != callbackPrefixStatus {
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, parts[2], true
}
