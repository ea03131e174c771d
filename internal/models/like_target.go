package models

import (
	"fmt"
	"strings"
)

// TargetKind names the entity type a like points at.
type TargetKind string

const (
	TargetVideo   TargetKind = "video"
	TargetComment TargetKind = "comment"
	TargetTweet   TargetKind = "tweet"
)

// Valid reports whether k is one of the known target kinds.
func (k TargetKind) Valid() bool {
	switch k {
	case TargetVideo, TargetComment, TargetTweet:
		return true
	default:
		return false
	}
}

// LikeTarget references exactly one likeable entity. The zero value is not a
// valid target; construct targets with VideoTarget, CommentTarget, TweetTarget
// or NewLikeTarget.
type LikeTarget struct {
	kind TargetKind
	id   string
}

func VideoTarget(id string) LikeTarget   { return LikeTarget{kind: TargetVideo, id: id} }
func CommentTarget(id string) LikeTarget { return LikeTarget{kind: TargetComment, id: id} }
func TweetTarget(id string) LikeTarget   { return LikeTarget{kind: TargetTweet, id: id} }

// NewLikeTarget builds a target from its stored representation.
func NewLikeTarget(kind TargetKind, id string) (LikeTarget, error) {
	if !kind.Valid() {
		return LikeTarget{}, fmt.Errorf("unknown like target kind %q", kind)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return LikeTarget{}, fmt.Errorf("like target %s: empty id", kind)
	}
	return LikeTarget{kind: kind, id: id}, nil
}

func (t LikeTarget) Kind() TargetKind { return t.kind }
func (t LikeTarget) ID() string       { return t.id }

// IsZero reports whether t was never constructed.
func (t LikeTarget) IsZero() bool { return t.kind == "" }

func (t LikeTarget) String() string {
	return string(t.kind) + ":" + t.id
}
