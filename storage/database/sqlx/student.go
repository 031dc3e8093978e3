package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core/student"
)

type studentRow struct {
	ID        int          `db:"id"`
	Name      string       `db:"name"`
	Email     string       `db:"email"`
	Phone     string       `db:"phone"`
	UserID    null.Int     `db:"user_id"`
	LevelID   null.Int     `db:"level_id"`
	AdvisorID null.Int     `db:"advisor_id"`
	Status    string       `db:"status"`
	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

func (r studentRow) toStudent() student.Student {
	st := student.Student{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		UserID:    r.UserID,
		LevelID:   r.LevelID,
		AdvisorID: r.AdvisorID,
		Status:    r.Status,
	}
	if r.CreatedAt.Valid {
		st.CreatedAt = r.CreatedAt.Time.UTC()
	}
	if r.UpdatedAt.Valid {
		st.UpdatedAt = r.UpdatedAt.Time.UTC()
	}
	return st
}

const studentCols = `id, name, email, phone, user_id, level_id, advisor_id, status, created_at, updated_at`

type StudentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*StudentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (repo *StudentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	q := `
		INSERT INTO student (name, email, phone, user_id, level_id, advisor_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		st.Name, st.Email, st.Phone, st.UserID, st.LevelID, st.AdvisorID, st.Status, st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	return st, nil
}

func (repo *StudentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+studentCols+` FROM student WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	} else if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return row.toStudent(), nil
}

func (repo *StudentRepository) GetStudentByUserID(ctx context.Context, userID int) (student.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+studentCols+` FROM student WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	} else if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student by user")
	}
	return row.toStudent(), nil
}

func (repo *StudentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE %[1]s OR LOWER(email) LIKE %[1]s)", p))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.AdvisorID != 0 {
		conds = append(conds, "advisor_id = "+arg(filter.AdvisorID))
	}
	if filter.LevelID != 0 {
		conds = append(conds, "level_id = "+arg(filter.LevelID))
	}

	q := `SELECT ` + studentCols + ` FROM student`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id"

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	sts := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		sts = append(sts, r.toStudent())
	}
	return sts, nil
}

func (repo *StudentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	q := `
		UPDATE student
		SET name = $2, email = $3, phone = $4, user_id = $5, level_id = $6, advisor_id = $7, status = $8, updated_at = $9
		WHERE id = $1
		RETURNING ` + studentCols
	var row studentRow
	err := repo.db.GetContext(
		ctx, &row, q,
		st.ID, st.Name, st.Email, st.Phone, st.UserID, st.LevelID, st.AdvisorID, st.Status, st.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	} else if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return row.toStudent(), nil
}
