package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mailwing/internal/model"
	"github.com/xxxsen/mailwing/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mailwing/internal/pkg/errors"
)

var userFields = []string{"id", "email", "name", "password_hash", "password_reset_token", "password_reset_expires", "created_at"}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, email string, passwordHash string) (int64, error) {
	data := map[string]interface{}{
		"email":         email,
		"password_hash": passwordHash,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	var id int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		if dbutil.IsConflict(err) {
			return 0, appErr.ErrConflict
		}
		return 0, err
	}
	return id, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"password_reset_token": token})
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var user model.User
	var name sql.NullString
	if err := rows.Scan(&user.ID, &user.Email, &name, &user.PasswordHash, &user.PasswordResetToken, &user.PasswordResetExpires, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Name = name.String
	return &user, nil
}

func (r *UserRepo) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	return r.update(ctx, userID, map[string]interface{}{
		"password_reset_token":   token,
		"password_reset_expires": expires,
	})
}

func (r *UserRepo) ClearResetToken(ctx context.Context, userID int64) error {
	return r.update(ctx, userID, map[string]interface{}{
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return r.update(ctx, userID, map[string]interface{}{
		"password_hash":          passwordHash,
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
}

func (r *UserRepo) update(ctx context.Context, userID int64, set map[string]interface{}) error {
	where := map[string]interface{}{"id": userID}
	sqlStr, args, err := builder.BuildUpdate("users", where, set)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	sqlStr, args, err := builder.BuildSelect("users", nil, []string{"count(*)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
