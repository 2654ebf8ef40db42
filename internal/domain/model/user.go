package model

import "strings"

type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if username := strings.TrimSpace(u.Username); username != "" {
		return "@" + username
	}
	return "Unknown"
}
