package publicapi

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS public_conversations (
	id            TEXT PRIMARY KEY,
	session_token TEXT NOT NULL,
	assistant_id  TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (session_token, assistant_id)
);
CREATE TABLE IF NOT EXISTS public_messages (
	id              BIGSERIAL PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES public_conversations(id),
	sender          TEXT NOT NULL,
	text            TEXT NOT NULL,
	metadata        JSONB NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type repo struct {
	db *sql.DB
}

// NewRepo stores conversations in PostgreSQL.
func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

// Migrate creates the conversation tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrate")
}

func (r *repo) EnsureConversation(ctx context.Context, sessionToken, assistant string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO public_conversations (id, session_token, assistant_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_token, assistant_id) DO UPDATE SET session_token = EXCLUDED.session_token
		RETURNING id
	`, uuid.NewString(), sessionToken, assistant).Scan(&id)
	if err != nil {
		return "", errors.Wrap(err, "ensure conversation")
	}
	return id, nil
}

func (r *repo) SaveMessage(ctx context.Context, msg *Message) error {
	meta, err := json.Marshal(msg.Metadata)
	if err != nil {
		return errors.Wrap(err, "encode metadata")
	}
	if msg.Metadata == nil {
		meta = []byte("{}")
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO public_messages (conversation_id, sender, text, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`,
		msg.ConversationID,
		string(msg.Sender),
		msg.Text,
		string(meta),
	).Scan(&msg.ID, &msg.CreatedAt)
	return errors.Wrap(err, "save message")
}

func (r *repo) GetHistory(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, text, metadata, created_at
		FROM public_messages
		WHERE conversation_id = $1
		ORDER BY id ASC
	`, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var sender string
		var meta []byte
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&sender,
			&m.Text,
			&meta,
			&m.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		m.Sender = Sender(sender)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &m.Metadata)
		}
		out = append(out, m)
	}

	return out, rows.Err()
}
