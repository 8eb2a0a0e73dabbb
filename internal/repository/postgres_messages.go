package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rentflow/internal/domain"
)

// PostgresMessagesRepository implements MessagesRepository.
type PostgresMessagesRepository struct {
	db DBTX
}

func NewPostgresMessagesRepository(db DBTX) *PostgresMessagesRepository {
	return &PostgresMessagesRepository{db: db}
}

var _ MessagesRepository = (*PostgresMessagesRepository)(nil)

const messageColumns = `message_id, content, sent_at, sender_id, receiver_id, property_id, is_read, is_report`

func scanMessage(row rowScanner) (*domain.Message, error) {
	var m domain.Message
	var propertyID sql.NullInt64
	if err := row.Scan(&m.ID, &m.Content, &m.Timestamp, &m.SenderID, &m.ReceiverID, &propertyID, &m.Read, &m.Report); err != nil {
		return nil, err
	}
	if propertyID.Valid {
		id := propertyID.Int64
		m.PropertyID = &id
	}
	return &m, nil
}

func (r *PostgresMessagesRepository) GetMessage(ctx context.Context, messageID int64) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE message_id = $1`, messageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: message_id=%d", domain.ErrMessageNotFound, messageID)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

func (r *PostgresMessagesRepository) ListMessages(ctx context.Context, filters MessageFilters) ([]*domain.Message, error) {
	where := []string{}
	args := []any{}
	argIdx := 1

	if filters.SenderID > 0 {
		where = append(where, fmt.Sprintf("sender_id = $%d", argIdx))
		args = append(args, filters.SenderID)
		argIdx++
	}
	if filters.ReceiverID > 0 {
		where = append(where, fmt.Sprintf("receiver_id = $%d", argIdx))
		args = append(args, filters.ReceiverID)
		argIdx++
	}
	if filters.PropertyID > 0 {
		where = append(where, fmt.Sprintf("property_id = $%d", argIdx))
		args = append(args, filters.PropertyID)
		argIdx++
	}
	if filters.UnreadOnly {
		where = append(where, "is_read = FALSE")
	}
	if filters.ReportsOnly {
		where = append(where, "is_report = TRUE")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM messages %s ORDER BY sent_at DESC, message_id DESC`, messageColumns, whereClause),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

func (r *PostgresMessagesRepository) CreateMessage(ctx context.Context, message *domain.Message) (int64, error) {
	if message == nil {
		return 0, fmt.Errorf("message is required")
	}
	var propertyID any
	if message.PropertyID != nil {
		propertyID = *message.PropertyID
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (content, sent_at, sender_id, receiver_id, property_id, is_read, is_report)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING message_id`,
		message.Content, message.Timestamp, message.SenderID, message.ReceiverID, propertyID, message.Read, message.Report,
	).Scan(&message.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to create message: %w", err)
	}
	return message.ID, nil
}

func (r *PostgresMessagesRepository) MarkRead(ctx context.Context, messageID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE message_id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return expectOne(res, domain.ErrMessageNotFound, messageID)
}

func (r *PostgresMessagesRepository) ClearProperty(ctx context.Context, propertyID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET property_id = NULL WHERE property_id = $1`, propertyID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear message property: %w", err)
	}
	return rowsAffected(res)
}

func (r *PostgresMessagesRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE sender_id = $1 OR receiver_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}
