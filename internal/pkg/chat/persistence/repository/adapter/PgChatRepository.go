package adapter

import (
	"context"
	"errors"
	"fmt"

	chat "go-wabridge/internal/pkg/chat/application/domain"
	repository "go-wabridge/internal/pkg/chat/persistence/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

var errNilPool = errors.New("PgChatRepository: nil pool")

const businessColumns = `id::text, name, whatsapp_number, COALESCE(api_key, ''), plan, concurrency_limit, created_at`

const conversationColumns = `id::text, business_id::text, contact_phone, contact_name, last_message,
	last_message_at, bot_active, unread_count, created_at`

const messageColumns = `id::text, seq, conversation_id::text, content, media_url, msg_type, sender,
	status, read, external_id, created_at`

func (r *PgChatRepository) FindBusinessByNumber(ctx context.Context, number string) (*chat.Business, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	row := r.pool.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE whatsapp_number = $1`, number)
	return scanBusiness(row)
}

func (r *PgChatRepository) GetBusiness(ctx context.Context, id string) (*chat.Business, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	row := r.pool.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1::uuid`, id)
	return scanBusiness(row)
}

func (r *PgChatRepository) UpsertConversation(ctx context.Context, businessID, phone string, name *string) (*chat.Conversation, bool, error) {
	if r == nil || r.pool == nil {
		return nil, false, errNilPool
	}
	// xmax = 0 only for rows inserted by this statement
	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversations (business_id, contact_phone, contact_name)
		VALUES ($1::uuid, $2, $3)
		ON CONFLICT (business_id, contact_phone)
		DO UPDATE SET contact_name = COALESCE(EXCLUDED.contact_name, conversations.contact_name)
		RETURNING `+conversationColumns+`, (xmax = 0) AS inserted
	`, businessID, phone, name)

	var (
		c        chat.Conversation
		inserted bool
	)
	err := row.Scan(&c.ID, &c.BusinessID, &c.ContactPhone, &c.ContactName, &c.LastMessage,
		&c.LastMessageAt, &c.BotActive, &c.UnreadCount, &c.CreatedAt, &inserted)
	if err != nil {
		return nil, false, err
	}
	return &c, inserted, nil
}

func (r *PgChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1::uuid`, id)
	return scanConversation(row)
}

func (r *PgChatRepository) FindConversationByPhone(ctx context.Context, businessID, phone string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE business_id = $1::uuid AND contact_phone = $2
	`, businessID, phone)
	return scanConversation(row)
}

func (r *PgChatRepository) FindLatestConversationByPhone(ctx context.Context, phone string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE contact_phone = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
		LIMIT 1
	`, phone)
	return scanConversation(row)
}

func (r *PgChatRepository) ListConversations(ctx context.Context, businessID string, limit, offset int) ([]chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	limit, offset = clampPage(limit, offset)
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE business_id = $1::uuid
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
		LIMIT $2 OFFSET $3
	`, businessID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make([]chat.Conversation, 0, limit)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return convs, nil
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) (string, int64, error) {
	if r == nil || r.pool == nil {
		return "", 0, errNilPool
	}
	var (
		id  string
		seq int64
	)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (
			conversation_id, content, media_url, msg_type, sender, status, read, external_id, created_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id::text, seq
	`, m.ConversationID, m.Content, m.MediaURL, string(m.MsgType), string(m.Sender), string(m.Status),
		m.Read, m.ExternalID, m.CreatedAt).Scan(&id, &seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, chat.ErrDuplicate
	}
	if err != nil {
		return "", 0, err
	}
	return id, seq, nil
}

func (r *PgChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	limit, offset = clampPage(limit, offset)
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, seq ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0, limit)
	for rows.Next() {
		var (
			msg     chat.Message
			msgType string
			sender  string
			status  string
		)
		if err := rows.Scan(&msg.ID, &msg.Seq, &msg.ConversationID, &msg.Content, &msg.MediaURL, &msgType,
			&sender, &status, &msg.Read, &msg.ExternalID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.MsgType = chat.MessageType(msgType)
		msg.Sender = chat.SenderKind(sender)
		msg.Status = chat.DeliveryStatus(status)
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (r *PgChatRepository) UpdateMessageStatus(ctx context.Context, externalID string, status chat.DeliveryStatus) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errNilPool
	}
	ct, err := r.pool.Exec(ctx, `UPDATE messages SET status = $2 WHERE external_id = $1`, externalID, string(status))
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// ApplySummary is a single statement so there is no read-modify-write window.
// Summary text only moves forward in time; counters and the bot flag always apply.
func (r *PgChatRepository) ApplySummary(ctx context.Context, conversationID string, u chat.SummaryUpdate) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET last_message = CASE
		        WHEN last_message_at IS NULL OR last_message_at <= $3 THEN $2
		        ELSE last_message END,
		    last_message_at = CASE
		        WHEN last_message_at IS NULL OR last_message_at <= $3 THEN $3
		        ELSE last_message_at END,
		    unread_count = GREATEST(unread_count + $4::int, 0),
		    bot_active = CASE WHEN $5::boolean THEN false ELSE bot_active END
		WHERE id = $1::uuid
	`, conversationID, u.LastMessage, u.LastMessageAt, u.UnreadDelta, u.DeactivateBot)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) SetBotActive(ctx context.Context, conversationID string, active bool) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	ct, err := r.pool.Exec(ctx, `UPDATE conversations SET bot_active = $2 WHERE id = $1::uuid`, conversationID, active)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) GetBotActive(ctx context.Context, conversationID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errNilPool
	}
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT bot_active FROM conversations WHERE id = $1::uuid`, conversationID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, chat.ErrNotFound
	}
	return active, err
}

func (r *PgChatRepository) MarkConversationRead(ctx context.Context, conversationID string) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `UPDATE conversations SET unread_count = 0 WHERE id = $1::uuid`, conversationID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrNotFound
	}
	if _, err := tx.Exec(ctx, `
		UPDATE messages SET read = true
		WHERE conversation_id = $1::uuid AND sender = 'user' AND NOT read
	`, conversationID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanBusiness(row pgx.Row) (*chat.Business, error) {
	var b chat.Business
	err := row.Scan(&b.ID, &b.Name, &b.WhatsAppNumber, &b.APIKey, &b.Plan, &b.ConcurrencyLimit, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan business: %w", err)
	}
	return &b, nil
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var c chat.Conversation
	err := row.Scan(&c.ID, &c.BusinessID, &c.ContactPhone, &c.ContactName, &c.LastMessage,
		&c.LastMessageAt, &c.BotActive, &c.UnreadCount, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return &c, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
