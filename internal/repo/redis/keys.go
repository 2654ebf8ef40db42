package redis

import (
	"strconv"
	"strings"
)

const DefaultPrefix = "feedback:"

type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return keys{prefix: prefix}
}

func (k keys) ticketSeq() string {
	return k.prefix + "tickets:seq"
}

func (k keys) ticketIndex() string {
	return k.prefix + "tickets"
}

func (k keys) ticket(id int64) string {
	return k.prefix + "ticket:" + strconv.FormatInt(id, 10)
}

func (k keys) stats() string {
	return k.prefix + "stats"
}
