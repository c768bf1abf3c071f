package model

import "time"

type User struct {
	ID           string
	Registration string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	AccessStatus AccessStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) Active() bool {
	return u.AccessStatus == StatusActive
}

type Session struct {
	TokenKey  string
	UserID    string
	StartedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type ConversationType string

const (
	ConversationDirect  ConversationType = "direct"
	ConversationGroup   ConversationType = "group"
	ConversationSupport ConversationType = "support"
)

type Conversation struct {
	ID        string
	Title     *string
	Type      ConversationType
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Participant struct {
	ID   string
	Name string
}

// Channel is 1:1 with its conversation.
type Channel struct {
	ID             string
	Name           string
	ConversationID string
}

type Subchannel struct {
	ID        string
	Name      string
	ChannelID string
}

// Thread addresses the subchannel that holds a conversation's messages.
type Thread struct {
	ConversationID string
	ChannelID      string
	SubchannelID   string
}

type Message struct {
	ID           string
	Content      string
	SubchannelID string
	AuthorID     *string
	AuthorName   *string
	Timestamp    time.Time
	IsRead       bool
}

type ConversationSummary struct {
	Conversation
	Participants []Participant
	LastMessage  *Message
}

type AcademicGroup struct {
	ID         string
	Course     string
	ClassGroup string
	Subject    string
	Members    []Participant
}

type PublicationKind string

const (
	KindPost         PublicationKind = "post"
	KindAnnouncement PublicationKind = "announcement"
)

// Publication is a post or an announcement; both share one shape.
type Publication struct {
	ID       string
	Kind     PublicationKind
	Title    string
	Content  string
	Date     time.Time
	AuthorID string
}

type Event struct {
	ID              string
	Title           string
	Description     *string
	Timestamp       time.Time
	EventDate       time.Time
	StartTime       *string
	EndTime         *string
	AcademicGroupID *string
	CreatorID       *string
}

type AccessGrant struct {
	ID         string
	UserID     string
	Permission string
	CreatedAt  time.Time
}

// MessageEvent is what participants are told when a message lands in their conversation.
type MessageEvent struct {
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Recipients     []string  `json:"recipients"`
}
