package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmonsalve/aula/core/contract"
)

type acceptanceRow struct {
	ID           int       `db:"id"`
	StudentID    int       `db:"student_id"`
	Status       string    `db:"status"`
	DocumentPath string    `db:"document_path"`
	SignedAt     null.Time `db:"signed_at"`
	Version      int       `db:"version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r acceptanceRow) toAcceptance() contract.Acceptance {
	return contract.Acceptance{
		ID:           r.ID,
		StudentID:    r.StudentID,
		Status:       r.Status,
		DocumentPath: r.DocumentPath,
		SignedAt:     r.SignedAt,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const acceptanceCols = `id, student_id, status, document_path, signed_at, version, created_at, updated_at`

type ContractRepository struct {
	db *sqlx.DB
}

var _ contract.Repository = (*ContractRepository)(nil)

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (repo *ContractRepository) CreateAcceptance(ctx context.Context, a contract.Acceptance) (contract.Acceptance, error) {
	q := `
		INSERT INTO contract_acceptance (student_id, status, document_path, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q,
		a.StudentID, a.Status, a.DocumentPath, a.Version, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return contract.Acceptance{}, errors.Wrap(err, "creating contract acceptance")
	}
	return a, nil
}

func (repo *ContractRepository) GetAcceptanceByID(ctx context.Context, id int) (contract.Acceptance, error) {
	var row acceptanceRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+acceptanceCols+` FROM contract_acceptance WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return contract.Acceptance{}, contract.ErrNotFound
	} else if err != nil {
		return contract.Acceptance{}, errors.Wrap(err, "getting contract acceptance")
	}
	return row.toAcceptance(), nil
}

func (repo *ContractRepository) GetStudentAcceptance(ctx context.Context, studentID int) (contract.Acceptance, error) {
	var row acceptanceRow
	q := `
		SELECT ` + acceptanceCols + `
		FROM contract_acceptance
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	err := repo.db.GetContext(ctx, &row, q, studentID)
	if err == sql.ErrNoRows {
		return contract.Acceptance{}, contract.ErrNotFound
	} else if err != nil {
		return contract.Acceptance{}, errors.Wrap(err, "getting student's contract acceptance")
	}
	return row.toAcceptance(), nil
}

// UpdateAcceptanceStatus applies a transition guarded by the expected version;
// a concurrent writer bumps the version and the late update matches no row.
func (repo *ContractRepository) UpdateAcceptanceStatus(ctx context.Context, a contract.Acceptance, expectedVersion int) (contract.Acceptance, error) {
	q := `
		UPDATE contract_acceptance
		SET status = $2, document_path = $3, signed_at = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $6
		RETURNING version`
	err := repo.db.QueryRowxContext(ctx, q,
		a.ID, a.Status, a.DocumentPath, a.SignedAt, a.UpdatedAt, expectedVersion,
	).Scan(&a.Version)
	if err == sql.ErrNoRows {
		return contract.Acceptance{}, contract.ErrUpdateConflict
	} else if err != nil {
		return contract.Acceptance{}, errors.Wrap(err, "updating contract acceptance")
	}
	return a, nil
}
