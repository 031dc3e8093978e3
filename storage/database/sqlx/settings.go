package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tmonsalve/aula/core/settings"
)

type settingRow struct {
	ID        int       `db:"id"`
	Type      string    `db:"type"`
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r settingRow) toSetting() settings.Setting {
	return settings.Setting{
		ID:        r.ID,
		Type:      r.Type,
		Key:       r.Key,
		Value:     r.Value,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const settingCols = `id, type, key, value, updated_at`

type SettingRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*SettingRepository)(nil)

func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (repo *SettingRepository) GetSetting(ctx context.Context, typ, key string) (settings.Setting, error) {
	var row settingRow
	q := `SELECT ` + settingCols + ` FROM setting WHERE type = $1 AND key = $2`
	err := repo.db.GetContext(ctx, &row, q, typ, key)
	if err == sql.ErrNoRows {
		return settings.Setting{}, settings.ErrNotFound
	} else if err != nil {
		return settings.Setting{}, errors.Wrap(err, "getting setting")
	}
	return row.toSetting(), nil
}

func (repo *SettingRepository) QuerySettings(ctx context.Context, typ string) ([]settings.Setting, error) {
	var rows []settingRow
	q := `SELECT ` + settingCols + ` FROM setting WHERE type = $1 ORDER BY key`
	if err := repo.db.SelectContext(ctx, &rows, q, typ); err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}
	sttngs := make([]settings.Setting, len(rows))
	for i, row := range rows {
		sttngs[i] = row.toSetting()
	}
	return sttngs, nil
}

func (repo *SettingRepository) UpsertSetting(ctx context.Context, s settings.Setting) (settings.Setting, error) {
	q := `
		INSERT INTO setting (type, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (type, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING id`
	if err := repo.db.QueryRowxContext(ctx, q, s.Type, s.Key, s.Value, s.UpdatedAt).Scan(&s.ID); err != nil {
		return settings.Setting{}, errors.Wrap(err, "upserting setting")
	}
	return s, nil
}

func (repo *SettingRepository) DeleteSetting(ctx context.Context, typ, key string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM setting WHERE type = $1 AND key = $2`, typ, key); err != nil {
		return errors.Wrap(err, "deleting setting")
	}
	return nil
}
