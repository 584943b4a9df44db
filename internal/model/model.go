// Package model holds the persisted domain types shared by the
// importer, the store, and the analytics engine.
package model

import "time"

// SystemSenderName is the reserved display name for system/placeholder
// senders. Members carrying it are excluded from all analytics.
const SystemSenderName = "[system]"

// ChatKind distinguishes direct chats from group chats.
type ChatKind string

const (
	ChatDirect ChatKind = "direct"
	ChatGroup  ChatKind = "group"
)

// MessageType is the closed set of message kinds a store can hold.
type MessageType int

const (
	TypeText MessageType = iota
	TypeImage
	TypeVoice
	TypeVideo
	TypeFile
	TypeEmoji
	TypeSystem
	TypeLink
	TypeOther
)

var typeNames = map[MessageType]string{
	TypeText:   "text",
	TypeImage:  "image",
	TypeVoice:  "voice",
	TypeVideo:  "video",
	TypeFile:   "file",
	TypeEmoji:  "emoji",
	TypeSystem: "system",
	TypeLink:   "link",
	TypeOther:  "other",
}

func (t MessageType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "other"
}

// IsVisual reports whether the type participates in image/emoji runs.
func (t MessageType) IsVisual() bool {
	return t == TypeImage || t == TypeEmoji
}

// Session is one imported chat log; it maps 1:1 to one store file.
type Session struct {
	ID         string
	Name       string
	Platform   string
	ChatKind   ChatKind
	ImportedAt time.Time
}

// Member is a chat participant. PlatformID is the vendor-assigned
// stable identifier, immutable and unique within a session.
type Member struct {
	ID           int64
	PlatformID   string
	DisplayName  string
	PlatformNick string
}

// NicknameHistoryEntry records one name a member used and when.
// Entries for a member are non-overlapping and ordered; EndTS is nil
// for the entry still in effect.
type NicknameHistoryEntry struct {
	ID       int64
	MemberID int64
	Name     string
	StartTS  int64
	EndTS    *int64
}

// Message is immutable once written. TS is epoch seconds; calendar
// bucketing interprets it in the local zone at query time.
type Message struct {
	ID       int64
	MemberID int64
	TS       int64
	Type     MessageType
	Content  string
}

// TimeFilter is an optional inclusive [Start, End] bound on message
// timestamps. A nil *TimeFilter means all time.
type TimeFilter struct {
	Start int64
	End   int64
}

// Contains reports whether ts falls inside the filter.
func (f *TimeFilter) Contains(ts int64) bool {
	if f == nil {
		return true
	}
	return ts >= f.Start && ts <= f.End
}
