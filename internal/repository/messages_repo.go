package repository

import (
	"context"

	"rentflow/internal/domain"
)

// MessagesRepository is append-only apart from the read flag and the
// property reference, which is cleared when the property goes away.
type MessagesRepository interface {
	GetMessage(ctx context.Context, messageID int64) (*domain.Message, error)
	// ListMessages orders by sent_at descending, then message_id descending.
	ListMessages(ctx context.Context, filters MessageFilters) ([]*domain.Message, error)
	CreateMessage(ctx context.Context, message *domain.Message) (int64, error)
	MarkRead(ctx context.Context, messageID int64) error
	// ClearProperty nulls property_id on every message tagged with the
	// property. Re-running it is a no-op.
	ClearProperty(ctx context.Context, propertyID int64) (int64, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
}

type MessageFilters struct {
	SenderID    int64
	ReceiverID  int64
	PropertyID  int64
	UnreadOnly  bool
	ReportsOnly bool
}
