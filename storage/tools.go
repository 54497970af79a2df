package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"pixie/model"
)

// CreateTool inserts a tool and fills in its ID.
func (d *DB) CreateTool(ctx context.Context, t *model.ToolDescriptor) error {
	input, output, err := encodeSchemas(t)
	if err != nil {
		return err
	}

	_, ts := now()
	t.ID = newID()
	if _, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO tool (id, toolkit_id, name, title, description, input_schema, output_schema, is_enabled, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.ToolkitID, t.Name, t.Title, t.Description, input, output, t.IsEnabled, ts,
	); err != nil {
		return errors.Wrap(err, "failed to insert tool")
	}
	return nil
}

// SetToolEnabled toggles whether the tool is offered to the model.
func (d *DB) SetToolEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`UPDATE tool SET is_enabled = ? WHERE id = ?`), enabled, id)
	if err != nil {
		return errors.Wrap(err, "failed to update tool")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "tool %s", id)
	}
	return nil
}

// AttachTool binds a tool to a widget. Attaching twice is a no-op.
func (d *DB) AttachTool(ctx context.Context, widgetID, toolID string) error {
	var exists int
	err := d.db.QueryRowContext(ctx, d.rebind(`SELECT 1 FROM tool WHERE id = ?`), toolID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errors.Wrapf(ErrNotFound, "tool %s", toolID)
	case err != nil:
		return errors.Wrap(err, "failed to look up tool")
	}

	_, ts := now()
	if _, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO tool_widget (tool_id, widget_id, created_ts) VALUES (?, ?, ?)
		ON CONFLICT (tool_id, widget_id) DO NOTHING`),
		toolID, widgetID, ts,
	); err != nil {
		return errors.Wrap(err, "failed to attach tool")
	}
	return nil
}

// ToolsByWidget returns every tool bound to the widget, enabled or not, in
// the order they were attached.
func (d *DB) ToolsByWidget(ctx context.Context, widgetID string) ([]model.ToolDescriptor, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT t.id, t.toolkit_id, t.name, t.title, t.description, t.input_schema, t.output_schema, t.is_enabled
		FROM tool t
		JOIN tool_widget tw ON tw.tool_id = t.id
		WHERE tw.widget_id = ?
		ORDER BY tw.created_ts, t.id`),
		widgetID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query widget tools")
	}
	defer rows.Close()

	var list []model.ToolDescriptor
	for rows.Next() {
		var (
			t             model.ToolDescriptor
			input, output string
		)
		if err := rows.Scan(&t.ID, &t.ToolkitID, &t.Name, &t.Title, &t.Description, &input, &output, &t.IsEnabled); err != nil {
			return nil, errors.Wrap(err, "failed to scan tool")
		}
		if err := json.Unmarshal([]byte(input), &t.InputSchema); err != nil {
			return nil, errors.Wrapf(err, "tool %s has a malformed input schema", t.ID)
		}
		if output != "" {
			if err := json.Unmarshal([]byte(output), &t.OutputSchema); err != nil {
				return nil, errors.Wrapf(err, "tool %s has a malformed output schema", t.ID)
			}
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func encodeSchemas(t *model.ToolDescriptor) (string, string, error) {
	in := t.InputSchema
	if in == nil {
		in = map[string]any{}
	}
	input, err := json.Marshal(in)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to encode input schema")
	}
	if t.OutputSchema == nil {
		return string(input), "", nil
	}
	output, err := json.Marshal(t.OutputSchema)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to encode output schema")
	}
	return string(input), string(output), nil
}
