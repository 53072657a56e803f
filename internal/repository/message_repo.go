package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"unsent/internal/domain"
)

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, conversation_id, user_id, content, role, time_spent_seconds, analysis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var analysis []byte
	if message.Analysis != nil {
		raw, err := json.Marshal(message.Analysis)
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
		analysis = raw
	}

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.ConversationID,
		message.UserID,
		message.Content,
		message.Role,
		message.TimeSpentSeconds,
		analysis,
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, user_id, content, role, time_spent_seconds, analysis, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var (
			msg      domain.Message
			analysis []byte
		)
		err = rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.UserID,
			&msg.Content,
			&msg.Role,
			&msg.TimeSpentSeconds,
			&analysis,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(analysis) > 0 {
			var a domain.MessageEmotionalAnalysis
			if err := json.Unmarshal(analysis, &a); err != nil {
				return nil, fmt.Errorf("unmarshal analysis for %s: %w", msg.ID, err)
			}
			msg.Analysis = &a
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
