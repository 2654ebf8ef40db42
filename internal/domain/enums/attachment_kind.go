package enums

type AttachmentKind string

const (
	AttachmentDocument AttachmentKind = "document"
	AttachmentPhoto    AttachmentKind = "photo"
)
