package dummydb

import (
	"context"
	"sort"

	"github.com/tmonsalve/aula/core/academic"
)

type academicRepository struct {
	levels  *table[academic.Level]
	groups  *table[academic.Group]
	classes *table[academic.ScheduledClass]
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{levels: db.level, groups: db.group, classes: db.class}
}

// Levels

func (repo *academicRepository) CreateLevel(ctx context.Context, lvl academic.Level) (academic.Level, error) {
	repo.levels.Lock()
	defer repo.levels.Unlock()

	lvl.ID = repo.levels.nextPK()
	repo.levels.rows[lvl.ID] = &lvl
	return lvl, nil
}

func (repo *academicRepository) GetLevelByID(ctx context.Context, id int) (academic.Level, error) {
	repo.levels.RLock()
	defer repo.levels.RUnlock()

	if lvl, ok := repo.levels.rows[id]; ok {
		return *lvl, nil
	}
	return academic.Level{}, academic.ErrLevelNotFound
}

func (repo *academicRepository) QueryAllLevels(ctx context.Context) ([]academic.Level, error) {
	repo.levels.RLock()
	defer repo.levels.RUnlock()

	lvls := repo.levels.query()
	sort.Slice(lvls, func(i, j int) bool {
		if lvls[i].Position != lvls[j].Position {
			return lvls[i].Position < lvls[j].Position
		}
		return lvls[i].ID < lvls[j].ID
	})
	return lvls, nil
}

func (repo *academicRepository) UpdateLevel(ctx context.Context, lvl academic.Level) (academic.Level, error) {
	repo.levels.Lock()
	defer repo.levels.Unlock()

	if _, ok := repo.levels.rows[lvl.ID]; !ok {
		return academic.Level{}, academic.ErrLevelNotFound
	}
	repo.levels.rows[lvl.ID] = &lvl
	return lvl, nil
}

func (repo *academicRepository) DeleteLevel(ctx context.Context, id int) error {
	repo.levels.Lock()
	defer repo.levels.Unlock()
	delete(repo.levels.rows, id)
	return nil
}

// Groups

func (repo *academicRepository) CreateGroup(ctx context.Context, grp academic.Group) (academic.Group, error) {
	repo.groups.Lock()
	defer repo.groups.Unlock()

	grp.ID = repo.groups.nextPK()
	repo.groups.rows[grp.ID] = &grp
	return grp, nil
}

func (repo *academicRepository) GetGroupByID(ctx context.Context, id int) (academic.Group, error) {
	repo.groups.RLock()
	defer repo.groups.RUnlock()

	if grp, ok := repo.groups.rows[id]; ok {
		return *grp, nil
	}
	return academic.Group{}, academic.ErrGroupNotFound
}

func (repo *academicRepository) QueryAllGroups(ctx context.Context) ([]academic.Group, error) {
	repo.groups.RLock()
	defer repo.groups.RUnlock()

	grps := repo.groups.query()
	sort.Slice(grps, func(i, j int) bool { return grps[i].ID < grps[j].ID })
	return grps, nil
}

func (repo *academicRepository) UpdateGroup(ctx context.Context, grp academic.Group) (academic.Group, error) {
	repo.groups.Lock()
	defer repo.groups.Unlock()

	if _, ok := repo.groups.rows[grp.ID]; !ok {
		return academic.Group{}, academic.ErrGroupNotFound
	}
	repo.groups.rows[grp.ID] = &grp
	return grp, nil
}

func (repo *academicRepository) DeleteGroup(ctx context.Context, id int) error {
	repo.groups.Lock()
	defer repo.groups.Unlock()
	delete(repo.groups.rows, id)
	return nil
}

// Scheduled classes

func (repo *academicRepository) CreateClass(ctx context.Context, cls academic.ScheduledClass) (academic.ScheduledClass, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	cls.ID = repo.classes.nextPK()
	repo.classes.rows[cls.ID] = &cls
	return cls, nil
}

func (repo *academicRepository) GetClassByID(ctx context.Context, id int) (academic.ScheduledClass, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	if cls, ok := repo.classes.rows[id]; ok {
		return *cls, nil
	}
	return academic.ScheduledClass{}, academic.ErrClassNotFound
}

func (repo *academicRepository) QueryGroupClasses(ctx context.Context, groupID int) ([]academic.ScheduledClass, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	var clss []academic.ScheduledClass
	for _, cls := range repo.classes.query() {
		if cls.GroupID == groupID {
			clss = append(clss, cls)
		}
	}
	sort.Slice(clss, func(i, j int) bool { return clss[i].StartsAt.Before(clss[j].StartsAt) })
	return clss, nil
}

func (repo *academicRepository) UpdateClass(ctx context.Context, cls academic.ScheduledClass) (academic.ScheduledClass, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	if _, ok := repo.classes.rows[cls.ID]; !ok {
		return academic.ScheduledClass{}, academic.ErrClassNotFound
	}
	repo.classes.rows[cls.ID] = &cls
	return cls, nil
}

func (repo *academicRepository) DeleteClass(ctx context.Context, id int) error {
	repo.classes.Lock()
	defer repo.classes.Unlock()
	delete(repo.classes.rows, id)
	return nil
}
