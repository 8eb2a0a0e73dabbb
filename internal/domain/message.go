package domain

import "time"

const (
	MaxMessageContentLen = 2000

	// ReportPrefix is prepended to the content of manager reports. Users
	// cannot send ordinary messages that start with it.
	ReportPrefix = "[REPORT] "
)

// Message maps the messages table. Only Read changes after insert.
type Message struct {
	ID         int64     `db:"message_id"` // BIGSERIAL, PRIMARY KEY
	Content    string    `db:"content"`    // VARCHAR(2000), NOT NULL
	Timestamp  time.Time `db:"sent_at"`
	SenderID   int64     `db:"sender_id"`   // FK users, ON DELETE RESTRICT
	ReceiverID int64     `db:"receiver_id"` // FK users, ON DELETE RESTRICT
	PropertyID *int64    `db:"property_id"` // FK properties, ON DELETE SET NULL
	Read       bool      `db:"is_read"`
	Report     bool      `db:"is_report"` // set only when filed as a manager report
}

func (m *Message) IsReport() bool { return m.Report }
