package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"pixie/model"
)

// MaxResourcesPerWidget is how many UI resource versions are kept per widget.
const MaxResourcesPerWidget = 20

// CreateResource stores a new UI resource version for the widget and drops
// the oldest versions beyond MaxResourcesPerWidget in the same transaction.
func (d *DB) CreateResource(ctx context.Context, widgetID string, env *model.ResourceEnvelope) (*model.StoredResource, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode ui resource")
	}

	created, ts := now()
	res := &model.StoredResource{
		ID:        newID(),
		WidgetID:  widgetID,
		Resource:  raw,
		CreatedAt: created,
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		d.rebind(`INSERT INTO ui_widget_resource (id, widget_id, resource, created_ts) VALUES (?, ?, ?, ?)`),
		res.ID, widgetID, string(raw), ts,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert ui resource")
	}

	pruned, err := tx.ExecContext(ctx, d.rebind(`
		DELETE FROM ui_widget_resource
		WHERE widget_id = ? AND id NOT IN (
			SELECT id FROM ui_widget_resource
			WHERE widget_id = ?
			ORDER BY created_ts DESC, id DESC
			LIMIT ?
		)`),
		widgetID, widgetID, MaxResourcesPerWidget,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prune ui resources")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit ui resource")
	}

	if n, _ := pruned.RowsAffected(); n > 0 {
		d.log.Debug("Pruned old UI resources", "widget_id", widgetID, "count", n)
	}
	return res, nil
}

// LatestByWidget returns the newest resource of the widget, or nil when it
// has none.
func (d *DB) LatestByWidget(ctx context.Context, widgetID string) (*model.StoredResource, error) {
	list, err := d.listResources(ctx, widgetID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListResources returns the widget's resource history, newest first.
func (d *DB) ListResources(ctx context.Context, widgetID string) ([]*model.StoredResource, error) {
	return d.listResources(ctx, widgetID, MaxResourcesPerWidget)
}

func (d *DB) listResources(ctx context.Context, widgetID string, limit int) ([]*model.StoredResource, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT id, widget_id, resource, created_ts
		FROM ui_widget_resource
		WHERE widget_id = ?
		ORDER BY created_ts DESC, id DESC
		LIMIT ?`),
		widgetID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query ui resources")
	}
	defer rows.Close()

	var list []*model.StoredResource
	for rows.Next() {
		var (
			r   model.StoredResource
			doc string
			ts  int64
		)
		if err := rows.Scan(&r.ID, &r.WidgetID, &doc, &ts); err != nil {
			return nil, errors.Wrap(err, "failed to scan ui resource")
		}
		r.Resource = json.RawMessage(doc)
		r.CreatedAt = fromTs(ts)
		list = append(list, &r)
	}
	return list, rows.Err()
}

// GetResource returns one resource by id.
func (d *DB) GetResource(ctx context.Context, id string) (*model.StoredResource, error) {
	var (
		r   model.StoredResource
		doc string
		ts  int64
	)
	err := d.db.QueryRowContext(ctx,
		d.rebind(`SELECT id, widget_id, resource, created_ts FROM ui_widget_resource WHERE id = ?`), id,
	).Scan(&r.ID, &r.WidgetID, &doc, &ts)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, errors.Wrapf(ErrNotFound, "ui resource %s", id)
	case err != nil:
		return nil, errors.Wrap(err, "failed to get ui resource")
	}
	r.Resource = json.RawMessage(doc)
	r.CreatedAt = fromTs(ts)
	return &r, nil
}
