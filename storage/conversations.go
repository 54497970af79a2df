package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"pixie/model"
)

// ConversationForWidget returns the id of the widget's conversation,
// creating it on first use.
func (d *DB) ConversationForWidget(ctx context.Context, widgetID string) (string, error) {
	var id string
	err := d.db.QueryRowContext(ctx, d.rebind(`SELECT id FROM conversation WHERE widget_id = ?`), widgetID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrap(err, "failed to get conversation")
	}

	_, ts := now()
	if _, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO conversation (id, widget_id, created_ts) VALUES (?, ?, ?)
		ON CONFLICT (widget_id) DO NOTHING`),
		newID(), widgetID, ts,
	); err != nil {
		return "", errors.Wrap(err, "failed to create conversation")
	}

	// Re-read so a concurrent creator's row wins.
	if err := d.db.QueryRowContext(ctx, d.rebind(`SELECT id FROM conversation WHERE widget_id = ?`), widgetID).Scan(&id); err != nil {
		return "", errors.Wrap(err, "failed to get conversation")
	}
	return id, nil
}

// CreateMessage appends a message to its conversation and fills in ID and
// CreatedAt.
func (d *DB) CreateMessage(ctx context.Context, m *model.Message) error {
	if _, ok := model.ParseRole(string(m.Role)); !ok {
		return errors.Errorf("invalid message role %q", m.Role)
	}

	created, ts := now()
	m.ID = newID()
	m.CreatedAt = created

	var resourceID sql.NullString
	if m.UIResourceID != "" {
		resourceID = sql.NullString{String: m.UIResourceID, Valid: true}
	}

	if _, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO message (id, conversation_id, role, content, ui_resource_id, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)`),
		m.ID, m.ConversationID, string(m.Role), m.Content, resourceID, ts,
	); err != nil {
		return errors.Wrap(err, "failed to insert message")
	}
	return nil
}

// ListMessages returns the transcript of a conversation, oldest first.
func (d *DB) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT id, conversation_id, role, content, ui_resource_id, created_ts
		FROM message
		WHERE conversation_id = ?
		ORDER BY created_ts, id`),
		conversationID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query messages")
	}
	defer rows.Close()

	var list []model.Message
	for rows.Next() {
		var (
			m          model.Message
			role       string
			resourceID sql.NullString
			ts         int64
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &resourceID, &ts); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		m.Role = model.Role(role)
		m.UIResourceID = resourceID.String
		m.CreatedAt = fromTs(ts)
		list = append(list, m)
	}
	return list, rows.Err()
}
