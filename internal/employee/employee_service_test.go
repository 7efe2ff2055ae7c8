package employee_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hrm-server/internal/employee"
	employeeerrors "hrm-server/internal/employee/errors"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	findByIDFn func(ctx context.Context, id uuid.UUID) (*employee.Employee, error)
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*employee.Employee, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, employeeerrors.ErrEmployeeNotFound
}

func TestDirectory_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		id := uuid.New()
		dir := employee.NewDirectory(&fakeRepository{
			findByIDFn: func(ctx context.Context, got uuid.UUID) (*employee.Employee, error) {
				assert.Equal(t, id, got)
				return &employee.Employee{ID: id, FullName: "Ana Ruiz"}, nil
			},
		}, nil)

		emp, err := dir.Get(ctx, id.String())

		require.NoError(t, err)
		assert.Equal(t, "Ana Ruiz", emp.FullName)
	})

	t.Run("negative invalid id", func(t *testing.T) {
		_, err := employee.NewDirectory(&fakeRepository{}, nil).Get(ctx, "abc")
		assert.ErrorIs(t, err, employeeerrors.ErrInvalidEmployeeID)
	})

	t.Run("negative not found", func(t *testing.T) {
		_, err := employee.NewDirectory(&fakeRepository{}, nil).Get(ctx, uuid.New().String())
		assert.ErrorIs(t, err, employeeerrors.ErrEmployeeNotFound)
	})
}

func TestDirectory_Contact(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success from cache", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		raw, _ := json.Marshal(employee.Contact{ID: id.String(), Name: "Ana Ruiz", Email: "ana@example.com"})
		mock.ExpectGet(employee.GetContactKey(id.String())).SetVal(string(raw))

		dir := employee.NewDirectory(&fakeRepository{
			findByIDFn: func(ctx context.Context, got uuid.UUID) (*employee.Employee, error) {
				t.Fatal("repository should not be hit on a cache hit")
				return nil, nil
			},
		}, rdb)

		c, err := dir.Contact(ctx, id.String())

		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", c.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success from repository fills cache", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(employee.GetContactKey(id.String())).RedisNil()
		raw, _ := json.Marshal(employee.Contact{ID: id.String(), Name: "Ana Ruiz", Email: "ana@example.com"})
		mock.ExpectSet(employee.GetContactKey(id.String()), raw, 30*time.Minute).SetVal("OK")

		dir := employee.NewDirectory(&fakeRepository{
			findByIDFn: func(ctx context.Context, got uuid.UUID) (*employee.Employee, error) {
				return &employee.Employee{ID: id, FullName: "Ana Ruiz", Email: "ana@example.com"}, nil
			},
		}, rdb)

		c, err := dir.Contact(ctx, id.String())

		require.NoError(t, err)
		assert.Equal(t, "Ana Ruiz", c.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEmployee_ProbationAndTenure(t *testing.T) {
	hire := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	probationEnd := hire.AddDate(0, 3, 0)
	emp := employee.Employee{HireDate: hire, ProbationEndDate: &probationEnd}

	assert.True(t, emp.OnProbation(hire.AddDate(0, 1, 0)))
	assert.False(t, emp.OnProbation(probationEnd))
	assert.Equal(t, 31, emp.TenureDays(hire.AddDate(0, 1, 0)))
	assert.Zero(t, emp.TenureDays(hire.AddDate(0, 0, -5)))
}
