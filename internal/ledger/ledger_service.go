package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ledgererrors "hrm-server/internal/ledger/errors"
	"hrm-server/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	BalanceKeyPrefix = "leave_balance:"
	balanceCacheTTL  = 10 * time.Minute
)

func GetBalanceCacheKey(key Key) string {
	return BalanceKeyPrefix + key.String()
}

// CarryForwardLimiter reports the most days a leave type may carry into the
// next year. limited is false when the leave type has no cap.
type CarryForwardLimiter interface {
	MaxCarryForward(ctx context.Context, orgID, leaveType string) (max decimal.Decimal, limited bool, err error)
}

type Service interface {
	GetBalance(ctx context.Context, employeeID, leaveType string, year int) (BalanceResponse, error)
	ListEntries(ctx context.Context, employeeID, leaveType string, year int) ([]EntryResponse, error)
	PostEntry(ctx context.Context, actorID string, req PostEntryRequest) (EntryResponse, error)
	CarryForward(ctx context.Context, orgID, actorID string, req CarryForwardRequest) (CarryForwardResponse, error)
	Reverse(ctx context.Context, actorID, entryID string, req ReverseEntryRequest) (EntryResponse, error)
	Recompute(ctx context.Context, employeeID, leaveType string, year int) (BalanceResponse, error)
	InvalidateBalances(ctx context.Context, keys ...Key)
}

type service struct {
	db      *sql.DB
	repo    Repository
	poster  Poster
	limiter CarryForwardLimiter
	rdb     *redis.Client
	sf      *singleflight.Group
	logger  *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	poster Poster,
	limiter CarryForwardLimiter,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("ledger.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.service")
	}
	return &service{
		db:      db,
		repo:    repo,
		poster:  poster,
		limiter: limiter,
		rdb:     rdb,
		sf:      &singleflight.Group{},
		logger:  l,
	}
}

func (s *service) GetBalance(ctx context.Context, employeeID, leaveType string, year int) (BalanceResponse, error) {
	key, err := parseKey(employeeID, leaveType, year)
	if err != nil {
		return BalanceResponse{}, err
	}
	cacheKey := GetBalanceCacheKey(key)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var resp BalanceResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		snap, err := s.repo.FindSnapshot(ctx, key)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			empty := Balance{}.Snapshot(key, time.Time{})
			snap = &empty
		}

		resp := mapSnapshotToResponse(*snap)
		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, balanceCacheTTL)
			}
		}
		return resp, nil
	})
	if err != nil {
		s.logger.Error("get balance failed", zap.String("key", key.String()), zap.Error(err))
		return BalanceResponse{}, err
	}

	return v.(BalanceResponse), nil
}

func (s *service) ListEntries(ctx context.Context, employeeID, leaveType string, year int) ([]EntryResponse, error) {
	key, err := parseKey(employeeID, leaveType, year)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(entries), nil
}

func (s *service) PostEntry(ctx context.Context, actorID string, req PostEntryRequest) (EntryResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("post ledger entry requested",
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("type", req.Type),
		zap.String("days", req.Days.String()),
	)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return EntryResponse{}, ledgererrors.ErrInvalidActorID
	}
	key, err := parseKey(req.EmployeeID, req.LeaveType, req.Year)
	if err != nil {
		return EntryResponse{}, err
	}
	entryType := EntryType(req.Type)
	if !entryType.Valid() || entryType == TypeReverse || isCarryForward(entryType) {
		return EntryResponse{}, ledgererrors.ErrInvalidEntryType
	}
	if entryType.Workflow() {
		return EntryResponse{}, ledgererrors.ErrWorkflowEntryType
	}
	if err := validateDays(req.Days, entryType == TypeAdjustment); err != nil {
		return EntryResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("post ledger entry begin tx failed", zap.Error(err))
		return EntryResponse{}, err
	}
	defer tx.Rollback()

	ptx := s.poster.WithTx(tx)

	if entryType == TypeEncash {
		bal, err := ptx.Balance(ctx, key)
		if err != nil {
			return EntryResponse{}, err
		}
		if bal.Available().LessThan(req.Days.Abs()) {
			log.Warn("encash exceeds available balance",
				zap.String("key", key.String()),
				zap.String("available", bal.Available().String()),
				zap.String("requested", req.Days.String()),
			)
			return EntryResponse{}, ledgererrors.ErrInsufficientBalance.WithDetails(map[string]string{
				"available": bal.Available().String(),
				"requested": req.Days.Abs().String(),
			})
		}
	}

	e := Entry{
		ID:             uuid.New(),
		EmployeeID:     key.EmployeeID,
		LeaveType:      key.LeaveType,
		Year:           key.Year,
		Type:           entryType,
		Days:           SignedDays(entryType, req.Days),
		Note:           req.Note,
		CreatedBy:      actorUUID,
		IdempotencyKey: req.IdempotencyKey,
	}
	if e.IdempotencyKey == "" {
		e.IdempotencyKey = "manual:" + e.ID.String()
	}

	posted := []Entry{e}
	if _, err := ptx.Post(ctx, posted...); err != nil {
		return EntryResponse{}, err
	}
	e = posted[0]
	if err := tx.Commit(); err != nil {
		log.Error("post ledger entry commit failed", zap.Error(err))
		return EntryResponse{}, err
	}
	RecordPosted(e)
	s.InvalidateBalances(ctx, key)

	log.Info("post ledger entry success",
		zap.String("entry_id", e.ID.String()),
		zap.String("key", key.String()),
		zap.String("type", string(e.Type)),
	)
	return mapToResponse(e), nil
}

func (s *service) CarryForward(ctx context.Context, orgID, actorID string, req CarryForwardRequest) (CarryForwardResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return CarryForwardResponse{}, ledgererrors.ErrInvalidActorID
	}
	from, err := parseKey(req.EmployeeID, req.LeaveType, req.FromYear)
	if err != nil {
		return CarryForwardResponse{}, err
	}
	to := Key{EmployeeID: from.EmployeeID, LeaveType: from.LeaveType, Year: from.Year + 1}

	limit, limited := decimal.Zero, false
	if s.limiter != nil {
		limit, limited, err = s.limiter.MaxCarryForward(ctx, orgID, from.LeaveType)
		if err != nil {
			return CarryForwardResponse{}, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("carry forward begin tx failed", zap.Error(err))
		return CarryForwardResponse{}, err
	}
	defer tx.Rollback()

	ptx := s.poster.WithTx(tx)

	bal, err := ptx.Balance(ctx, from)
	if err != nil {
		return CarryForwardResponse{}, err
	}
	amount := bal.Available()
	if limited && amount.GreaterThan(limit) {
		amount = limit
	}
	if !amount.IsPositive() {
		return CarryForwardResponse{}, ledgererrors.ErrNothingToCarry
	}

	note := fmt.Sprintf("carry forward %d -> %d", from.Year, to.Year)
	out := Entry{
		EmployeeID:     from.EmployeeID,
		LeaveType:      from.LeaveType,
		Year:           from.Year,
		Type:           TypeCarryForwardOut,
		Days:           SignedDays(TypeCarryForwardOut, amount),
		Note:           note,
		CreatedBy:      actorUUID,
		IdempotencyKey: fmt.Sprintf("carry-forward:%s:out", from),
	}
	in := Entry{
		EmployeeID:     to.EmployeeID,
		LeaveType:      to.LeaveType,
		Year:           to.Year,
		Type:           TypeCarryForwardIn,
		Days:           SignedDays(TypeCarryForwardIn, amount),
		Note:           note,
		CreatedBy:      actorUUID,
		IdempotencyKey: fmt.Sprintf("carry-forward:%s:in", from),
	}

	snaps, err := ptx.Post(ctx, out, in)
	if err != nil {
		return CarryForwardResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		log.Error("carry forward commit failed", zap.Error(err))
		return CarryForwardResponse{}, err
	}
	RecordPosted(out, in)
	s.InvalidateBalances(ctx, from, to)

	resp := CarryForwardResponse{Carried: amount}
	for _, snap := range snaps {
		switch snap.Key() {
		case from:
			resp.From = mapSnapshotToResponse(snap)
		case to:
			resp.To = mapSnapshotToResponse(snap)
		}
	}

	log.Info("carry forward success",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("days", amount.String()),
	)
	return resp, nil
}

func (s *service) Reverse(ctx context.Context, actorID, entryID string, req ReverseEntryRequest) (EntryResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return EntryResponse{}, ledgererrors.ErrInvalidActorID
	}
	id, err := uuid.Parse(entryID)
	if err != nil {
		return EntryResponse{}, ledgererrors.ErrEntryNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("reverse ledger entry begin tx failed", zap.Error(err))
		return EntryResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	original, err := qtx.FindByID(ctx, id)
	if err != nil {
		return EntryResponse{}, err
	}
	if original.Type.Workflow() {
		return EntryResponse{}, ledgererrors.ErrWorkflowEntryType
	}
	if original.Type == TypeReverse {
		return EntryResponse{}, ledgererrors.ErrInvalidEntryType
	}
	reversed, err := qtx.HasReversal(ctx, id)
	if err != nil {
		return EntryResponse{}, err
	}
	if reversed {
		return EntryResponse{}, ledgererrors.ErrAlreadyReversed
	}

	rev := Entry{
		ID:             uuid.New(),
		EmployeeID:     original.EmployeeID,
		LeaveType:      original.LeaveType,
		Year:           original.Year,
		Type:           TypeReverse,
		Days:           original.Days.Neg(),
		ReversesID:     &original.ID,
		Note:           req.Note,
		CreatedBy:      actorUUID,
		IdempotencyKey: "reverse:" + original.ID.String(),
	}
	posted := []Entry{rev}
	if _, err := s.poster.WithTx(tx).Post(ctx, posted...); err != nil {
		if errors.Is(err, ledgererrors.ErrDuplicatePosting) {
			return EntryResponse{}, ledgererrors.ErrAlreadyReversed
		}
		return EntryResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		log.Error("reverse ledger entry commit failed", zap.Error(err))
		return EntryResponse{}, err
	}
	rev = posted[0]
	RecordPosted(rev)
	s.InvalidateBalances(ctx, rev.Key())

	log.Info("reverse ledger entry success",
		zap.String("entry_id", rev.ID.String()),
		zap.String("reverses_id", original.ID.String()),
	)
	return mapToResponse(rev), nil
}

func (s *service) Recompute(ctx context.Context, employeeID, leaveType string, year int) (BalanceResponse, error) {
	key, err := parseKey(employeeID, leaveType, year)
	if err != nil {
		return BalanceResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BalanceResponse{}, err
	}
	defer tx.Rollback()

	snap, err := s.poster.WithTx(tx).Recompute(ctx, key)
	if err != nil {
		return BalanceResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return BalanceResponse{}, err
	}
	s.InvalidateBalances(ctx, key)
	return mapSnapshotToResponse(snap), nil
}

// InvalidateBalances drops cached balances. Failures are logged only: the
// cache entry expires on its own and the snapshot table stays authoritative.
func (s *service) InvalidateBalances(ctx context.Context, keys ...Key) {
	if s.rdb == nil || len(keys) == 0 {
		return
	}
	cacheKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		cacheKeys = append(cacheKeys, GetBalanceCacheKey(k))
	}
	if err := s.rdb.Del(ctx, cacheKeys...).Err(); err != nil {
		s.logger.Warn("invalidate balance cache failed", zap.Strings("keys", cacheKeys), zap.Error(err))
	}
}

func isCarryForward(t EntryType) bool {
	return t == TypeCarryForwardIn || t == TypeCarryForwardOut
}

func parseKey(employeeID, leaveType string, year int) (Key, error) {
	empUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return Key{}, ledgererrors.ErrInvalidEmployeeID
	}
	if year < 2000 || year > 2100 {
		return Key{}, ledgererrors.ErrInvalidYear
	}
	return Key{EmployeeID: empUUID, LeaveType: leaveType, Year: year}, nil
}

var two = decimal.NewFromInt(2)

// validateDays accepts non-zero multiples of half a day. Only adjustments may
// be negative.
func validateDays(days decimal.Decimal, allowNegative bool) error {
	if days.IsZero() || (!allowNegative && days.IsNegative()) {
		return ledgererrors.ErrInvalidDays
	}
	if !days.Mul(two).IsInteger() {
		return ledgererrors.ErrInvalidDays
	}
	return nil
}

func mapToResponse(e Entry) EntryResponse {
	resp := EntryResponse{
		ID:         e.ID.String(),
		EmployeeID: e.EmployeeID.String(),
		LeaveType:  e.LeaveType,
		Year:       e.Year,
		Type:       string(e.Type),
		Days:       e.Days,
		Note:       e.Note,
		CreatedBy:  e.CreatedBy.String(),
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
	if e.ApplicationID != nil {
		v := e.ApplicationID.String()
		resp.ApplicationID = &v
	}
	if e.ReversesID != nil {
		v := e.ReversesID.String()
		resp.ReversesID = &v
	}
	return resp
}

func mapToListResponse(entries []Entry) []EntryResponse {
	resp := make([]EntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = mapToResponse(e)
	}
	return resp
}

func mapSnapshotToResponse(s Snapshot) BalanceResponse {
	resp := BalanceResponse{
		EmployeeID:     s.EmployeeID.String(),
		LeaveType:      s.LeaveType,
		Year:           s.Year,
		OpeningBalance: s.OpeningBalance,
		Accrued:        s.Accrued,
		Used:           s.Used,
		Pending:        s.Pending,
		CarryForward:   s.CarryForward,
		Encashed:       s.Encashed,
		Available:      s.Available,
		EntryCount:     s.EntryCount,
	}
	if !s.RecomputedAt.IsZero() {
		v := s.RecomputedAt.Format(time.RFC3339)
		resp.RecomputedAt = &v
	}
	return resp
}
