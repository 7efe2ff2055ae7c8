package employee

import (
	"context"
	"encoding/json"
	"time"

	employeeerrors "hrm-server/internal/employee/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	ContactKeyPrefix = "employees:contact:"
	contactCacheTTL  = 30 * time.Minute
)

func GetContactKey(id string) string {
	return ContactKeyPrefix + id
}

// Directory is the read-only employee lookup used by the workflow, the
// approver resolver and notifications. Employee records are owned by the
// core HR service.
type Directory interface {
	Get(ctx context.Context, id string) (*Employee, error)
	Contact(ctx context.Context, id string) (Contact, error)
}

type directory struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewDirectory(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Directory {
	l := zap.L().Named("employee.directory")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.directory")
	}
	return &directory{repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (d *directory) Get(ctx context.Context, id string) (*Employee, error) {
	empID, err := uuid.Parse(id)
	if err != nil {
		return nil, employeeerrors.ErrInvalidEmployeeID
	}
	return d.repo.FindByID(ctx, empID)
}

func (d *directory) Contact(ctx context.Context, id string) (Contact, error) {
	cacheKey := GetContactKey(id)

	if d.rdb != nil {
		if cached, err := d.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var c Contact
			if err := json.Unmarshal([]byte(cached), &c); err == nil {
				return c, nil
			}
		}
	}

	v, err, _ := d.sf.Do(cacheKey, func() (interface{}, error) {
		emp, err := d.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		c := Contact{ID: emp.ID.String(), Name: emp.FullName, Email: emp.Email}
		if d.rdb != nil {
			if jsonData, err := json.Marshal(c); err == nil {
				d.rdb.Set(ctx, cacheKey, jsonData, contactCacheTTL)
			}
		}
		return c, nil
	})
	if err != nil {
		d.logger.Warn("resolve contact failed", zap.String("employee_id", id), zap.Error(err))
		return Contact{}, err
	}
	return v.(Contact), nil
}
