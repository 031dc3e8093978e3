package dummydb

import (
	"context"

	"github.com/tmonsalve/aula/core/contract"
)

type contractRepository struct {
	db *table[contract.Acceptance]
}

var _ contract.Repository = (*contractRepository)(nil) // interface compliance check

func NewContractRepository(db *DB) contract.Repository {
	return &contractRepository{db: db.acceptance}
}

func (repo *contractRepository) CreateAcceptance(ctx context.Context, a contract.Acceptance) (contract.Acceptance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = repo.db.nextPK()
	repo.db.rows[a.ID] = &a
	return a, nil
}

func (repo *contractRepository) GetAcceptanceByID(ctx context.Context, id int) (contract.Acceptance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.rows[id]; ok {
		return *a, nil
	}
	return contract.Acceptance{}, contract.ErrNotFound
}

func (repo *contractRepository) GetStudentAcceptance(ctx context.Context, studentID int) (contract.Acceptance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var latest *contract.Acceptance
	for _, a := range repo.db.rows {
		if a.StudentID != studentID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return contract.Acceptance{}, contract.ErrNotFound
	}
	return *latest, nil
}

func (repo *contractRepository) UpdateAcceptanceStatus(ctx context.Context, a contract.Acceptance, expectedVersion int) (contract.Acceptance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[a.ID]
	if !ok || orig.Version != expectedVersion {
		return contract.Acceptance{}, contract.ErrUpdateConflict
	}
	orig.Status = a.Status
	orig.DocumentPath = a.DocumentPath
	orig.SignedAt = a.SignedAt
	orig.UpdatedAt = a.UpdatedAt
	orig.Version++
	return *orig, nil
}
