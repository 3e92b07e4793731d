package model

// Op names a post mutation.
type Op string

const (
	OpCreated Op = "post.created"
	OpUpdated Op = "post.updated"
	OpDeleted Op = "post.deleted"
)

// PostEvent is the change record fanned out on the live feed and written to
// the outbox. For deletions only ID, OwnerID and DisplayName are meaningful.
type PostEvent struct {
	Op         Op    `json:"op"`
	Post       Post  `json:"post"`
	OccurredAt int64 `json:"occurred_at"`
}
