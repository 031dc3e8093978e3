package dummydb

import (
	"context"
	"sort"

	"github.com/tmonsalve/aula/core/settings"
)

type settingRepository struct {
	db *table[settings.Setting]
}

var _ settings.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *DB) settings.Repository {
	return &settingRepository{db: db.setting}
}

func (repo *settingRepository) GetSetting(ctx context.Context, typ, key string) (settings.Setting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.rows {
		if s.Type == typ && s.Key == key {
			return *s, nil
		}
	}
	return settings.Setting{}, settings.ErrNotFound
}

func (repo *settingRepository) QuerySettings(ctx context.Context, typ string) ([]settings.Setting, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sttngs []settings.Setting
	for _, s := range repo.db.query() {
		if s.Type == typ {
			sttngs = append(sttngs, s)
		}
	}
	sort.Slice(sttngs, func(i, j int) bool { return sttngs[i].Key < sttngs[j].Key })
	return sttngs, nil
}

func (repo *settingRepository) UpsertSetting(ctx context.Context, s settings.Setting) (settings.Setting, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, orig := range repo.db.rows {
		if orig.Type == s.Type && orig.Key == s.Key {
			orig.Value = s.Value
			orig.UpdatedAt = s.UpdatedAt
			return *orig, nil
		}
	}
	s.ID = repo.db.nextPK()
	repo.db.rows[s.ID] = &s
	return s, nil
}

func (repo *settingRepository) DeleteSetting(ctx context.Context, typ, key string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, s := range repo.db.rows {
		if s.Type == typ && s.Key == key {
			delete(repo.db.rows, id)
			return nil
		}
	}
	return nil
}
