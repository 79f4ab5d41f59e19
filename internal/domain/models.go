// Package domain defines the persistence models for conversations, messages,
// and feedback. These types are mapped with GORM and form the core data layer
// of the assistant backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Message roles. System messages are reserved for injected context and are
// never produced by the HTTP API directly.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ValidRole reports whether r is one of the accepted message roles.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// Conversation represents a chat thread owned by a user. Each conversation
// has a generated title and contains the messages exchanged between the user
// and the assistant.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the owner; indexed for efficient retrieval.
//   - Title: human-readable title (auto-generated from the first prompt).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Conversation struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"   gorm:"type:varchar(64);not null;index:idx_user_conversations"`
	Title     string         `json:"title"     gorm:"type:varchar(255);not null;default:'New conversation'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message represents a single utterance within a conversation. Messages are
// authored by the "user", the "assistant", or (for injected context) the
// "system". Assistant messages produced by the analysis flow additionally
// carry a confidence score and structured recommendations; user messages may
// reference an uploaded attachment.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conversation_msgs,priority:1"`
	Role           string         `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','assistant','system')"`
	Content        string         `json:"content"         gorm:"type:text;not null"`
	Confidence     *float64       `json:"confidence,omitempty"` // only for assistant analyses
	Recommendations []string      `json:"recommendations,omitempty" gorm:"serializer:json"`
	AttachmentURL  string         `json:"attachment_url,omitempty"  gorm:"type:varchar(512)"`
	AttachmentType string         `json:"attachment_type,omitempty" gorm:"type:varchar(16)"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index:idx_conversation_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"          gorm:"index"`

	// Conversation is the parent thread. Messages are cascade-deleted
	// if their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Feedback represents a user-provided rating on a specific assistant message.
// A user can only leave one feedback entry per message (enforced by unique index).
type Feedback struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string         `json:"message_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_message_user"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_feedback_message_user"`
	Value     int            `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Message is the rated assistant message. Feedback is cascade-deleted
	// if the underlying message is removed.
	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }
