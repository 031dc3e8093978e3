package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core/academic"
)

type groupRow struct {
	ID            int      `db:"id"`
	Name          string   `db:"name"`
	LevelID       int      `db:"level_id"`
	TeacherID     null.Int `db:"teacher_id"`
	Capacity      int      `db:"capacity"`
	ScheduleLabel string   `db:"schedule_label"`
}

func (r groupRow) toGroup() academic.Group {
	return academic.Group{
		ID:            r.ID,
		Name:          r.Name,
		LevelID:       r.LevelID,
		TeacherID:     r.TeacherID,
		Capacity:      r.Capacity,
		ScheduleLabel: r.ScheduleLabel,
	}
}

type classRow struct {
	ID          int       `db:"id"`
	GroupID     int       `db:"group_id"`
	TeacherID   null.Int  `db:"teacher_id"`
	Topic       string    `db:"topic"`
	StartsAt    time.Time `db:"starts_at"`
	DurationMin int       `db:"duration_min"`
}

func (r classRow) toClass() academic.ScheduledClass {
	return academic.ScheduledClass{
		ID:          r.ID,
		GroupID:     r.GroupID,
		TeacherID:   r.TeacherID,
		Topic:       r.Topic,
		StartsAt:    r.StartsAt.UTC(),
		DurationMin: r.DurationMin,
	}
}

const (
	groupCols = `id, name, level_id, teacher_id, capacity, schedule_label`
	classCols = `id, group_id, teacher_id, topic, starts_at, duration_min`
)

type AcademicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*AcademicRepository)(nil)

func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// Levels

func (repo *AcademicRepository) CreateLevel(ctx context.Context, lvl academic.Level) (academic.Level, error) {
	q := `INSERT INTO level (name, position) VALUES ($1, $2) RETURNING id`
	if err := repo.db.QueryRowxContext(ctx, q, lvl.Name, lvl.Position).Scan(&lvl.ID); err != nil {
		return academic.Level{}, errors.Wrap(err, "creating level")
	}
	return lvl, nil
}

func (repo *AcademicRepository) GetLevelByID(ctx context.Context, id int) (academic.Level, error) {
	var lvl academic.Level
	err := repo.db.QueryRowxContext(ctx, `SELECT id, name, position FROM level WHERE id = $1`, id).
		Scan(&lvl.ID, &lvl.Name, &lvl.Position)
	if err == sql.ErrNoRows {
		return academic.Level{}, academic.ErrLevelNotFound
	} else if err != nil {
		return academic.Level{}, errors.Wrap(err, "getting level")
	}
	return lvl, nil
}

func (repo *AcademicRepository) QueryAllLevels(ctx context.Context) ([]academic.Level, error) {
	var lvls []academic.Level
	q := `SELECT id, name, position FROM level ORDER BY position, id`
	rows, err := repo.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying levels")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var lvl academic.Level
		if err = rows.Scan(&lvl.ID, &lvl.Name, &lvl.Position); err != nil {
			return nil, errors.Wrap(err, "querying levels")
		}
		lvls = append(lvls, lvl)
	}
	return lvls, rows.Err()
}

func (repo *AcademicRepository) UpdateLevel(ctx context.Context, lvl academic.Level) (academic.Level, error) {
	q := `UPDATE level SET name = $2, position = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, lvl.ID, lvl.Name, lvl.Position)
	if err != nil {
		return academic.Level{}, errors.Wrap(err, "updating level")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return academic.Level{}, academic.ErrLevelNotFound
	}
	return lvl, nil
}

func (repo *AcademicRepository) DeleteLevel(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM level WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting level")
	}
	return nil
}

// Groups

func (repo *AcademicRepository) CreateGroup(ctx context.Context, grp academic.Group) (academic.Group, error) {
	q := `
		INSERT INTO "group" (name, level_id, teacher_id, capacity, schedule_label)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, grp.Name, grp.LevelID, grp.TeacherID, grp.Capacity, grp.ScheduleLabel).
		Scan(&grp.ID)
	if err != nil {
		return academic.Group{}, errors.Wrap(err, "creating group")
	}
	return grp, nil
}

func (repo *AcademicRepository) GetGroupByID(ctx context.Context, id int) (academic.Group, error) {
	var row groupRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+groupCols+` FROM "group" WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return academic.Group{}, academic.ErrGroupNotFound
	} else if err != nil {
		return academic.Group{}, errors.Wrap(err, "getting group")
	}
	return row.toGroup(), nil
}

func (repo *AcademicRepository) QueryAllGroups(ctx context.Context) ([]academic.Group, error) {
	var rows []groupRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+groupCols+` FROM "group" ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	grps := make([]academic.Group, len(rows))
	for i, row := range rows {
		grps[i] = row.toGroup()
	}
	return grps, nil
}

func (repo *AcademicRepository) UpdateGroup(ctx context.Context, grp academic.Group) (academic.Group, error) {
	q := `
		UPDATE "group"
		SET name = $2, level_id = $3, teacher_id = $4, capacity = $5, schedule_label = $6
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, grp.ID, grp.Name, grp.LevelID, grp.TeacherID, grp.Capacity, grp.ScheduleLabel)
	if err != nil {
		return academic.Group{}, errors.Wrap(err, "updating group")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return academic.Group{}, academic.ErrGroupNotFound
	}
	return grp, nil
}

func (repo *AcademicRepository) DeleteGroup(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM "group" WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return nil
}

// Scheduled classes

func (repo *AcademicRepository) CreateClass(ctx context.Context, cls academic.ScheduledClass) (academic.ScheduledClass, error) {
	q := `
		INSERT INTO scheduled_class (group_id, teacher_id, topic, starts_at, duration_min)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, cls.GroupID, cls.TeacherID, cls.Topic, cls.StartsAt, cls.DurationMin).
		Scan(&cls.ID)
	if err != nil {
		return academic.ScheduledClass{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *AcademicRepository) GetClassByID(ctx context.Context, id int) (academic.ScheduledClass, error) {
	var row classRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+classCols+` FROM scheduled_class WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return academic.ScheduledClass{}, academic.ErrClassNotFound
	} else if err != nil {
		return academic.ScheduledClass{}, errors.Wrap(err, "getting class")
	}
	return row.toClass(), nil
}

func (repo *AcademicRepository) QueryGroupClasses(ctx context.Context, groupID int) ([]academic.ScheduledClass, error) {
	var rows []classRow
	q := `SELECT ` + classCols + ` FROM scheduled_class WHERE group_id = $1 ORDER BY starts_at`
	if err := repo.db.SelectContext(ctx, &rows, q, groupID); err != nil {
		return nil, errors.Wrap(err, "querying group classes")
	}
	clss := make([]academic.ScheduledClass, len(rows))
	for i, row := range rows {
		clss[i] = row.toClass()
	}
	return clss, nil
}

func (repo *AcademicRepository) UpdateClass(ctx context.Context, cls academic.ScheduledClass) (academic.ScheduledClass, error) {
	q := `
		UPDATE scheduled_class
		SET group_id = $2, teacher_id = $3, topic = $4, starts_at = $5, duration_min = $6
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, cls.ID, cls.GroupID, cls.TeacherID, cls.Topic, cls.StartsAt, cls.DurationMin)
	if err != nil {
		return academic.ScheduledClass{}, errors.Wrap(err, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return academic.ScheduledClass{}, academic.ErrClassNotFound
	}
	return cls, nil
}

func (repo *AcademicRepository) DeleteClass(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM scheduled_class WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return nil
}
