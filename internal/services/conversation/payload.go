package conversation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/flor-ldlse/feedback-bot/internal/errs"
	"github.com/flor-ldlse/feedback-bot/internal/services/moderation"
)

const permanentToken = "perm"

const maxTermMinutes = math.MaxInt64 / int64(time.Minute)

// RestrictionPayload is a parsed "<userId> <minutes>" or "<userId> perm".
type RestrictionPayload struct {
	UserID int64
	Term   moderation.Term
}

func ParseRestrictionPayload(text string) (RestrictionPayload, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return RestrictionPayload{}, fmt.Errorf("%w: expected user id and minutes or %q", errs.ErrValidation, permanentToken)
	}
	userID, err := parseUserID(fields[0])
	if err != nil {
		return RestrictionPayload{}, err
	}
	if strings.EqualFold(fields[1], permanentToken) {
		return RestrictionPayload{UserID: userID, Term: moderation.Permanent()}, nil
	}
	minutes, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || minutes <= 0 || minutes > maxTermMinutes {
		return RestrictionPayload{}, fmt.Errorf("%w: invalid minutes %q", errs.ErrValidation, fields[1])
	}
	return RestrictionPayload{
		UserID: userID,
		Term:   moderation.For(time.Duration(minutes) * time.Minute),
	}, nil
}

func ParseUnbanPayload(text string) (int64, error) {
	fields := strings.Fields(text)
	if len(fields) != 1 {
		return 0, fmt.Errorf("%w: expected a single user id", errs.ErrValidation)
	}
	return parseUserID(fields[0])
}

func parseUserID(raw string) (int64, error) {
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", errs.ErrValidation, raw)
	}
	return userID, nil
}
