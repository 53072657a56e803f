package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"unsent/internal/domain"
)

// PgConversationRepository implementa ConversationRepository usando pgxpool.
type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

const conversationColumns = `id, user_id, recipient_name, recipient_type, recipient_context,
		emotional_score, current_stage, message_count, created_at, updated_at`

func (r *PgConversationRepository) Create(ctx context.Context, c domain.Conversation) error {
	const query = `
		INSERT INTO conversations (` + conversationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.RecipientName,
		c.RecipientType,
		c.RecipientContext,
		c.EmotionalScore,
		string(c.CurrentStage),
		c.MessageCount,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *PgConversationRepository) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	c, err := scanConversation(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, ErrNotFound
	}
	return c, err
}

func (r *PgConversationRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Conversation, error) {
	const query = `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []domain.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *PgConversationRepository) Update(ctx context.Context, c domain.Conversation, prevMessageCount int) error {
	const query = `
		UPDATE conversations
		SET recipient_name = $2, recipient_type = $3, recipient_context = $4,
		    emotional_score = $5, current_stage = $6, message_count = $7, updated_at = $8
		WHERE id = $1 AND message_count = $9
	`
	tag, err := r.pool.Exec(ctx, query,
		c.ID,
		c.RecipientName,
		c.RecipientType,
		c.RecipientContext,
		c.EmotionalScore,
		string(c.CurrentStage),
		c.MessageCount,
		c.UpdatedAt,
		prevMessageCount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func scanConversation(row pgx.Row) (domain.Conversation, error) {
	var (
		c     domain.Conversation
		stage string
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.RecipientName,
		&c.RecipientType,
		&c.RecipientContext,
		&c.EmotionalScore,
		&stage,
		&c.MessageCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Conversation{}, err
	}
	c.CurrentStage = domain.EmotionStage(stage)
	return c, nil
}
