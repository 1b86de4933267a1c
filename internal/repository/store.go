package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrTxConflict is returned once a unit of work has exhausted its retries on
// serialization failures or deadlocks.
var ErrTxConflict = errors.New("transaction conflict")

// Store groups the repositories over one connection or one transaction.
type Store struct {
	db *gorm.DB

	Users      *UserRepository
	Follows    *FollowRepository
	Posts      *PostRepository
	Likes      *LikeRepository
	Comments   *CommentRepository
	Replies    *ReplyRepository
	Activities *ActivityRepository

	txOptions  *sql.TxOptions
	maxRetries int
}

type StoreOption func(*Store)

// WithIsolation sets the isolation level of every unit of work. Only
// "serializable" and "repeatable_read" are recognised; anything else keeps
// the driver default.
func WithIsolation(level string) StoreOption {
	return func(s *Store) {
		switch level {
		case "serializable":
			s.txOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}
		case "repeatable_read":
			s.txOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
		}
	}
}

func WithMaxRetries(n int) StoreOption {
	return func(s *Store) {
		s.maxRetries = n
	}
}

func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := bind(db)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func bind(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Users:      NewUserRepository(db),
		Follows:    NewFollowRepository(db),
		Posts:      NewPostRepository(db),
		Likes:      NewLikeRepository(db),
		Comments:   NewCommentRepository(db),
		Replies:    NewReplyRepository(db),
		Activities: NewActivityRepository(db),
	}
}

// DB exposes the connection or transaction the store is bound to.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn as one unit of work. fn receives a Store bound to the
// transaction and may be invoked more than once, so it must not accumulate
// state outside itself across calls.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = s.run(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrTxConflict, err)
}

func (s *Store) run(ctx context.Context, fn func(tx *Store) error) error {
	txFn := func(tx *gorm.DB) error {
		return fn(bind(tx))
	}
	if s.txOptions != nil {
		return s.db.WithContext(ctx).Transaction(txFn, s.txOptions)
	}
	return s.db.WithContext(ctx).Transaction(txFn)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
