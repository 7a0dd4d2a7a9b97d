package chat

import "time"

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type InputType string

const (
	InputText  InputType = "text"
	InputVoice InputType = "voice"
	InputFile  InputType = "file"
)

type Assistant struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Provider  string    `gorm:"type:varchar(50);not null" json:"provider"`
	Model     string    `gorm:"type:varchar(100);not null" json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Assistant) TableName() string { return "assistants" }

// ChatLog is one side of a turn. Rows are only ever appended.
type ChatLog struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string     `gorm:"type:varchar(100);not null;index:idx_chat_logs_session_created,priority:1" json:"session_id"`
	UserID      *string    `gorm:"type:varchar(100)" json:"user_id,omitempty"`
	Speaker     Speaker    `gorm:"type:varchar(20);not null" json:"speaker"`
	AssistantID *uint64    `gorm:"index" json:"assistant_id,omitempty"`
	Assistant   *Assistant `gorm:"foreignKey:AssistantID" json:"-"`
	InputType   InputType  `gorm:"type:varchar(20);not null" json:"input_type"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	CreatedAt   time.Time  `gorm:"index:idx_chat_logs_session_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time  `json:"-"`
}

func (ChatLog) TableName() string { return "chat_logs" }

// DefaultAssistant is the row seeded at startup.
func DefaultAssistant(id uint64) *Assistant {
	return &Assistant{
		ID:       id,
		Name:     "GPT-4o Assistant",
		Provider: "openai",
		Model:    "gpt-4o",
	}
}
