package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
)

const (
	conversationColumns = `id, venue_id, customer_name, table_number, unread_venue, unread_customer, last_message_at, closed`
	messageColumns      = `id, conversation_id, sender_type, content, is_read, created_at`
)

type MessagingRepositoryInterface interface {
	Conversations(ctx context.Context, venueID string) ([]domain.Conversation, error)
	Messages(ctx context.Context, venueID, conversationID string) ([]domain.Message, error)
	SendTx(ctx context.Context, venueID, conversationID, content string) (domain.Message, error)
	MarkReadTx(ctx context.Context, venueID, conversationID string) error
}

type MessagingRepository struct {
	db database.DB
}

func NewMessagingRepository(db database.DB) MessagingRepositoryInterface {
	return &MessagingRepository{db: db}
}

func (r *MessagingRepository) Conversations(ctx context.Context, venueID string) ([]domain.Conversation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+conversationColumns+` FROM conversations
WHERE venue_id=$1 AND NOT closed ORDER BY last_message_at DESC`, venueID)
	if err != nil {
		return nil, fmt.Errorf("conversations: %w", err)
	}
	defer rows.Close()
	var out []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.VenueID, &c.CustomerName, &c.TableNumber, &c.UnreadVenue,
			&c.UnreadCustomer, &c.LastMessageAt, &c.Closed); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Messages returns a thread oldest first. The join keeps another venue's thread out.
func (r *MessagingRepository) Messages(ctx context.Context, venueID, conversationID string) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `SELECT m.`+strings.ReplaceAll(messageColumns, ", ", ", m.")+`
FROM messages m JOIN conversations c ON c.id = m.conversation_id
WHERE m.conversation_id=$1 AND c.venue_id=$2 ORDER BY m.created_at ASC`, conversationID, venueID)
	if err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SendTx inserts a venue-side message and bumps the customer's unread counter.
func (r *MessagingRepository) SendTx(ctx context.Context, venueID, conversationID, content string) (domain.Message, error) {
	var out domain.Message
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockConversation(ctx, tx, venueID, conversationID); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `INSERT INTO messages (conversation_id, sender_type, content, is_read, created_at)
VALUES ($1, 'venue', $2, false, now())
RETURNING `+messageColumns, conversationID, content)
		var err error
		if out, err = scanMessage(row); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE conversations SET unread_customer = unread_customer + 1, last_message_at = now()
WHERE id=$1`, conversationID); err != nil {
			return fmt.Errorf("bump unread: %w", err)
		}
		return nil
	})
	return out, err
}

// MarkReadTx marks the customer's messages read and zeroes the venue counter.
func (r *MessagingRepository) MarkReadTx(ctx context.Context, venueID, conversationID string) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockConversation(ctx, tx, venueID, conversationID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE messages SET is_read = true
WHERE conversation_id=$1 AND sender_type='customer' AND NOT is_read`, conversationID); err != nil {
			return fmt.Errorf("mark messages read: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE conversations SET unread_venue = 0 WHERE id=$1`, conversationID); err != nil {
			return fmt.Errorf("reset unread: %w", err)
		}
		return nil
	})
}

func lockConversation(ctx context.Context, tx pgx.Tx, venueID, conversationID string) error {
	var owner string
	err := tx.QueryRow(ctx, `SELECT venue_id FROM conversations WHERE id=$1 FOR UPDATE`, conversationID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock conversation: %w", err)
	}
	if owner != venueID {
		return domain.ErrVenueMismatch
	}
	return nil
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var m domain.Message
	var sender string
	err := row.Scan(&m.ID, &m.ConversationID, &sender, &m.Content, &m.IsRead, &m.CreatedAt)
	m.SenderType = domain.SenderType(sender)
	return m, err
}
