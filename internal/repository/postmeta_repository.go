package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/editorial-roles/internal/config"
)

// PostMetaRepo stores per-post metadata as ordered value lists: one row per
// value, like the host platform's post meta table. Reads go through Redis
// when a client is configured.
type PostMetaRepo struct {
	db    *sql.DB
	rdb   *redis.Client
	cache config.MetaCacheConfig
}

// NewPostMetaRepo constructs the store. rdb may be nil, which disables caching.
func NewPostMetaRepo(db *sql.DB, rdb *redis.Client, cache config.MetaCacheConfig) *PostMetaRepo {
	return &PostMetaRepo{db: db, rdb: rdb, cache: cache}
}

func (r *PostMetaRepo) cached() bool { return r.rdb != nil && r.cache.Enabled }

func (r *PostMetaRepo) cacheKey(postID uint64, key string) string {
	return fmt.Sprintf("%s:%d:%s", r.cache.Prefix, postID, key)
}

// Get returns every value stored under key for postID in insertion order.
// A key that was never written yields an empty list.
func (r *PostMetaRepo) Get(ctx context.Context, postID uint64, key string) ([]string, error) {
	if r.cached() {
		if bs, err := r.rdb.Get(ctx, r.cacheKey(postID, key)).Bytes(); err == nil {
			var values []string
			if json.Unmarshal(bs, &values) == nil {
				return values, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("postmeta: cache read %d/%s: %v", postID, key, err)
		}
	}

	values, err := r.load(ctx, postID, key)
	if err != nil {
		return nil, err
	}
	if r.cached() {
		if bs, err := json.Marshal(values); err == nil {
			_ = r.rdb.SetEx(ctx, r.cacheKey(postID, key), bs, r.cache.TTL).Err()
		}
	}
	return values, nil
}

// GetSingle returns the first value of key, or "" when there is none.
func (r *PostMetaRepo) GetSingle(ctx context.Context, postID uint64, key string) (string, error) {
	values, err := r.Get(ctx, postID, key)
	if err != nil || len(values) == 0 {
		return "", err
	}
	return values[0], nil
}

func (r *PostMetaRepo) load(ctx context.Context, postID uint64, key string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT meta_value FROM postmeta WHERE post_id = ? AND meta_key = ? ORDER BY meta_id`, postID, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Update replaces all values of key for postID with values.
func (r *PostMetaRepo) Update(ctx context.Context, postID uint64, key string, values []string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err == nil && r.cached() {
			_ = r.rdb.Del(ctx, r.cacheKey(postID, key)).Err()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM postmeta WHERE post_id = ? AND meta_key = ?`, postID, key); err != nil {
		return err
	}
	for _, v := range values {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES (?, ?, ?)`, postID, key, v); err != nil {
			return err
		}
	}
	return nil
}
