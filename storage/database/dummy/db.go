// Package dummydb provides in-memory repositories for tests and local
// development without a running database.
package dummydb

import (
	"sync"

	"github.com/tmonsalve/aula/core/academic"
	"github.com/tmonsalve/aula/core/billing"
	"github.com/tmonsalve/aula/core/contract"
	"github.com/tmonsalve/aula/core/notify"
	"github.com/tmonsalve/aula/core/settings"
	"github.com/tmonsalve/aula/core/student"
	"github.com/tmonsalve/aula/core/user"
)

type (
	DB struct {
		user         *table[user.User]
		student      *table[student.Student]
		level        *table[academic.Level]
		group        *table[academic.Group]
		class        *table[academic.ScheduledClass]
		plan         *table[billing.PaymentPlan]
		installment  *table[billing.Installment]
		voucher      *table[billing.Voucher]
		acceptance   *table[contract.Acceptance]
		setting      *table[settings.Setting]
		notification *table[notify.Notification]
	}

	table[T any] struct {
		sync.RWMutex
		rows    map[int]*T
		pkCount int
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int]*T)}
}

// nextPK must be called with the write lock held.
func (t *table[T]) nextPK() int {
	t.pkCount++
	return t.pkCount
}

func (t *table[T]) query() []T {
	rows := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, *r)
	}
	return rows
}

func (t *table[T]) reset() {
	t.Lock()
	defer t.Unlock()
	t.rows = make(map[int]*T)
	t.pkCount = 0
}

// Reset empties every table; mainly useful between tests.
func (db *DB) Reset() {
	db.user.reset()
	db.student.reset()
	db.level.reset()
	db.group.reset()
	db.class.reset()
	db.plan.reset()
	db.installment.reset()
	db.voucher.reset()
	db.acceptance.reset()
	db.setting.reset()
	db.notification.reset()
}

func Open() (*DB, error) {
	db := &DB{
		user:         newTable[user.User](),
		student:      newTable[student.Student](),
		level:        newTable[academic.Level](),
		group:        newTable[academic.Group](),
		class:        newTable[academic.ScheduledClass](),
		plan:         newTable[billing.PaymentPlan](),
		installment:  newTable[billing.Installment](),
		voucher:      newTable[billing.Voucher](),
		acceptance:   newTable[contract.Acceptance](),
		setting:      newTable[settings.Setting](),
		notification: newTable[notify.Notification](),
	}
	return db, nil
}
