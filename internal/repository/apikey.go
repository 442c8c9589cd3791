package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/auth"
)

const findKeyByHashSQL = `SELECT id, key_hash, name, user_id, scopes
	FROM api_keys WHERE key_hash = $1 AND active`

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository looks up API keys by their HMAC digest.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash returns the active key matching the digest, or
// auth.ErrUnauthorized when none exists.
func (r *APIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*auth.Key, error) {
	rows, err := r.pool.Query(ctx, findKeyByHashSQL, keyHash)
	if err != nil {
		return nil, fmt.Errorf("finding api key: %w", err)
	}

	k, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.Key, error) {
		var k auth.Key
		err := row.Scan(&k.ID, &k.KeyHash, &k.Name, &k.UserID, &k.Scopes)
		return k, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUnauthorized
		}
		return nil, fmt.Errorf("finding api key: %w", err)
	}
	return &k, nil
}
