package enums

type ModerationKind string

const (
	ModerationBan  ModerationKind = "ban"
	ModerationMute ModerationKind = "mute"
)

// ModerationAction is what an administrator is entering a payload for.
type ModerationAction string

const (
	ModerationActionBan   ModerationAction = "ban"
	ModerationActionMute  ModerationAction = "mute"
	ModerationActionUnban ModerationAction = "unban"
)
