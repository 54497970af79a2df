package storage

import (
	"context"

	"github.com/pkg/errors"

	"pixie/model"
)

// CreateDesign stores an uploaded logo or UX design.
func (d *DB) CreateDesign(ctx context.Context, typ model.DesignType, filename, contentType string, data []byte) (*model.DesignAsset, error) {
	created, ts := now()
	asset := &model.DesignAsset{
		ID:          newID(),
		Type:        typ,
		Filename:    filename,
		ContentType: contentType,
		FileSize:    int64(len(data)),
		Data:        data,
		CreatedAt:   created,
	}

	if _, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO design (id, design_type, filename, content_type, file_size, file_data, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		asset.ID, string(typ), filename, contentType, asset.FileSize, data, ts,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert design")
	}
	return asset, nil
}

// ListByType returns the designs of one type, newest first.
func (d *DB) ListByType(ctx context.Context, typ model.DesignType) ([]model.DesignAsset, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT id, design_type, filename, content_type, file_size, file_data, created_ts
		FROM design
		WHERE design_type = ?
		ORDER BY created_ts DESC, id DESC`),
		string(typ),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query designs")
	}
	defer rows.Close()

	var list []model.DesignAsset
	for rows.Next() {
		var (
			a  model.DesignAsset
			dt string
			ts int64
		)
		if err := rows.Scan(&a.ID, &dt, &a.Filename, &a.ContentType, &a.FileSize, &a.Data, &ts); err != nil {
			return nil, errors.Wrap(err, "failed to scan design")
		}
		a.Type = model.DesignType(dt)
		a.CreatedAt = fromTs(ts)
		list = append(list, a)
	}
	return list, rows.Err()
}

func (d *DB) DeleteDesign(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`DELETE FROM design WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "failed to delete design")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "design %s", id)
	}
	return nil
}
