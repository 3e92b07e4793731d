package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind is the post variant. The stored values are the ones the service has
// always written: "kun" for a status and "peng" for a diary entry.
type Kind string

const (
	KindStatus Kind = "kun"
	KindDiary  Kind = "peng"
)

// ParseKind accepts both the stored values and the human names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kun", "status":
		return KindStatus, nil
	case "peng", "diary":
		return KindDiary, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Valid() bool { return k == KindStatus || k == KindDiary }

func (k Kind) Label() string {
	if k == KindDiary {
		return "Diary"
	}
	return "Status"
}

// CreationTime is either Pending (the store has not stamped the row yet, or the
// column is null) or Known as milliseconds since the Unix epoch.
type CreationTime struct {
	millis int64
	known  bool
}

func Pending() CreationTime { return CreationTime{} }

func Known(ms int64) CreationTime { return CreationTime{millis: ms, known: true} }

// FromTime normalizes a database timestamp to epoch milliseconds.
func FromTime(t time.Time) CreationTime { return Known(t.UnixMilli()) }

func (c CreationTime) Millis() (int64, bool) { return c.millis, c.known }

func (c CreationTime) IsKnown() bool { return c.known }

// Time returns the instant in UTC. Callers must check IsKnown first.
func (c CreationTime) Time() time.Time { return time.UnixMilli(c.millis).UTC() }

func (c CreationTime) MarshalJSON() ([]byte, error) {
	if !c.known {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, c.millis, 10), nil
}

func (c *CreationTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*c = Pending()
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*c = Known(ms)
	return nil
}

// Post Invariants:
// 1. OwnerID is set once at creation and never transferred.
// 2. Kind is fixed at creation.
// 3. CreatedAt is assigned by the database and is the only ordering key.
type Post struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	DisplayName string       `json:"username"`
	Content     string       `json:"content"`
	Kind        Kind         `json:"type"`
	CreatedAt   CreationTime `json:"created_at"`
}

// NewPost is the create payload handed to the store. The store assigns ID and
// CreatedAt.
type NewPost struct {
	OwnerID     string
	DisplayName string
	Content     string
	Kind        Kind
}

func (n NewPost) Validate() error {
	if IsBlank(n.Content) {
		return ErrEmptyContent
	}
	if !n.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool { return strings.TrimSpace(s) == "" }
