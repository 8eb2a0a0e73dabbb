package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"rentflow/internal/domain"
	"rentflow/internal/events"
	"rentflow/internal/repository"

	"go.uber.org/zap"
)

// MessagingService is the message ledger. Messages never change after
// insert except for the read flag.
type MessagingService interface {
	Send(ctx context.Context, senderID, receiverID int64, content string, propertyID *int64) (*domain.Message, error)
	Report(ctx context.Context, managerID, propertyID int64, content string) (*domain.Message, error)
	Reply(ctx context.Context, originalID, senderID int64, content string, propertyID *int64) (*domain.Message, error)
	Get(ctx context.Context, messageID int64) (*domain.Message, error)
	InboxFor(ctx context.Context, userID int64) ([]*domain.Message, error)
	SentBy(ctx context.Context, userID int64) ([]*domain.Message, error)
	MarkRead(ctx context.Context, messageID, readerID int64) error
	ReportsFor(ctx context.Context, ownerID int64) ([]*domain.Message, error)
	UnreadFor(ctx context.Context, userID int64) ([]*domain.Message, error)
}

type messagingService struct {
	store     repository.Store
	clock     Clock
	publisher events.Publisher
	logger    *zap.Logger
}

func NewMessagingService(store repository.Store, clock Clock, publisher events.Publisher, logger *zap.Logger) MessagingService {
	return &messagingService{
		store:     store,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
	}
}

func checkContent(content string, max int) error {
	if strings.TrimSpace(content) == "" {
		return domain.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > max {
		return fmt.Errorf("%w: content exceeds %d characters", domain.ErrValidation, max)
	}
	return nil
}

// checkUserContent applies checkContent and keeps the report marker
// reserved for messages filed through Report.
func checkUserContent(content string) error {
	if err := checkContent(content, domain.MaxMessageContentLen); err != nil {
		return err
	}
	if strings.HasPrefix(strings.TrimLeft(content, " \t\r\n"), strings.TrimSpace(domain.ReportPrefix)) {
		return fmt.Errorf("%w: content may not start with %q", domain.ErrValidation, strings.TrimSpace(domain.ReportPrefix))
	}
	return nil
}

func userExists(ctx context.Context, tx repository.Repos, userID int64, notFound error) error {
	if _, err := tx.Users().GetUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: user_id=%d", notFound, userID)
		}
		return err
	}
	return nil
}

// insert stamps the message with the clock and stores it.
func (s *messagingService) insert(ctx context.Context, tx repository.Repos, m *domain.Message) error {
	m.Timestamp = s.clock.Now().UTC()
	m.Read = false
	_, err := tx.Messages().CreateMessage(ctx, m)
	return err
}

func (s *messagingService) sent(ctx context.Context, m *domain.Message) {
	s.logger.Info("Message sent",
		zap.Int64("message_id", m.ID),
		zap.Int64("sender_id", m.SenderID),
		zap.Int64("receiver_id", m.ReceiverID),
		zap.Bool("report", m.IsReport()))
	data := map[string]any{"sender_id": m.SenderID, "receiver_id": m.ReceiverID, "report": m.IsReport()}
	if m.PropertyID != nil {
		data["property_id"] = *m.PropertyID
	}
	events.Emit(ctx, s.publisher, s.logger, events.New(events.MessageSent, m.ID, m.Timestamp, data))
}

func (s *messagingService) Send(ctx context.Context, senderID, receiverID int64, content string, propertyID *int64) (*domain.Message, error) {
	if err := checkUserContent(content); err != nil {
		return nil, err
	}

	m := &domain.Message{Content: content, SenderID: senderID, ReceiverID: receiverID, PropertyID: propertyID}
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if err := userExists(ctx, tx, senderID, domain.ErrSenderNotFound); err != nil {
			return err
		}
		if err := userExists(ctx, tx, receiverID, domain.ErrReceiverNotFound); err != nil {
			return err
		}
		if propertyID != nil {
			if _, err := tx.Properties().GetProperty(ctx, *propertyID); err != nil {
				return err
			}
		}
		return s.insert(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	s.sent(ctx, m)
	return m, nil
}

// Report files a manager report with the property's owner.
func (s *messagingService) Report(ctx context.Context, managerID, propertyID int64, content string) (*domain.Message, error) {
	if err := checkContent(content, domain.MaxMessageContentLen-len(domain.ReportPrefix)); err != nil {
		return nil, err
	}

	pid := propertyID
	m := &domain.Message{Content: domain.ReportPrefix + content, SenderID: managerID, PropertyID: &pid, Report: true}
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		p, err := tx.Properties().GetProperty(ctx, propertyID)
		if err != nil {
			return err
		}
		if err := userExists(ctx, tx, managerID, domain.ErrSenderNotFound); err != nil {
			return err
		}
		m.ReceiverID = p.OwnerID
		return s.insert(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	s.sent(ctx, m)
	return m, nil
}

// quote appends the original text, each line prefixed with "> ", trimming
// the quote so the whole reply fits the content limit.
func quote(reply, original string) string {
	lines := strings.Split(original, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	quoted := "\n\n" + strings.Join(lines, "\n")

	room := domain.MaxMessageContentLen - utf8.RuneCountInString(reply)
	if r := []rune(quoted); len(r) > room {
		if room <= 0 {
			return reply
		}
		quoted = string(r[:room])
	}
	return reply + quoted
}

// Reply answers a message on behalf of its receiver: the original is
// marked read and the reply, addressed to the original sender, is stored
// in the same transaction.
func (s *messagingService) Reply(ctx context.Context, originalID, senderID int64, content string, propertyID *int64) (*domain.Message, error) {
	if err := checkUserContent(content); err != nil {
		return nil, err
	}

	var m *domain.Message
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		original, err := tx.Messages().GetMessage(ctx, originalID)
		if err != nil {
			return err
		}
		if original.ReceiverID != senderID {
			return fmt.Errorf("%w: user %d is not the receiver of message %d", domain.ErrUnauthorized, senderID, originalID)
		}

		tag := propertyID
		if tag == nil {
			tag = original.PropertyID
		} else if _, err := tx.Properties().GetProperty(ctx, *tag); err != nil {
			return err
		}

		if err := tx.Messages().MarkRead(ctx, originalID); err != nil {
			return err
		}
		m = &domain.Message{
			Content:    quote(content, original.Content),
			SenderID:   senderID,
			ReceiverID: original.SenderID,
			PropertyID: tag,
		}
		return s.insert(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	s.sent(ctx, m)
	return m, nil
}

func (s *messagingService) Get(ctx context.Context, messageID int64) (*domain.Message, error) {
	return s.store.Messages().GetMessage(ctx, messageID)
}

func (s *messagingService) InboxFor(ctx context.Context, userID int64) ([]*domain.Message, error) {
	return s.store.Messages().ListMessages(ctx, repository.MessageFilters{ReceiverID: userID})
}

func (s *messagingService) SentBy(ctx context.Context, userID int64) ([]*domain.Message, error) {
	return s.store.Messages().ListMessages(ctx, repository.MessageFilters{SenderID: userID})
}

// MarkRead is allowed for the receiver only and is idempotent.
func (s *messagingService) MarkRead(ctx context.Context, messageID, readerID int64) error {
	changed := false
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		m, err := tx.Messages().GetMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if m.ReceiverID != readerID {
			return fmt.Errorf("%w: user %d is not the receiver of message %d", domain.ErrUnauthorized, readerID, messageID)
		}
		if m.Read {
			return nil
		}
		changed = true
		return tx.Messages().MarkRead(ctx, messageID)
	})
	if err != nil {
		return err
	}
	if changed {
		events.Emit(ctx, s.publisher, s.logger, events.New(events.MessageRead, messageID, s.clock.Now(), nil))
	}
	return nil
}

// ReportsFor lists the reports filed with an owner. Only messages stored
// through Report qualify; the content prefix is not consulted.
func (s *messagingService) ReportsFor(ctx context.Context, ownerID int64) ([]*domain.Message, error) {
	return s.store.Messages().ListMessages(ctx, repository.MessageFilters{ReceiverID: ownerID, ReportsOnly: true})
}

func (s *messagingService) UnreadFor(ctx context.Context, userID int64) ([]*domain.Message, error) {
	return s.store.Messages().ListMessages(ctx, repository.MessageFilters{ReceiverID: userID, UnreadOnly: true})
}
