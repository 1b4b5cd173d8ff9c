package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/editorial-roles/internal/model"
)

// TermRepo reads and removes taxonomy terms.
type TermRepo struct{ db *sql.DB }

func NewTermRepo(db *sql.DB) *TermRepo { return &TermRepo{db: db} }

// ListByTaxonomy returns every term of taxonomy, including unused ones,
// ordered by id.
func (r *TermRepo) ListByTaxonomy(ctx context.Context, taxonomy string) ([]model.Term, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT term_id, taxonomy, slug, name, description FROM terms WHERE taxonomy = ? ORDER BY term_id`, taxonomy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Term
	for rows.Next() {
		var t model.Term
		if err := rows.Scan(&t.ID, &t.Taxonomy, &t.Slug, &t.Name, &t.Description); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create stores a term and returns its id.
func (r *TermRepo) Create(ctx context.Context, t model.Term) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO terms (taxonomy, slug, name, description) VALUES (?, ?, ?, ?)`,
		t.Taxonomy, t.Slug, t.Name, t.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Delete removes the term with id from taxonomy.
func (r *TermRepo) Delete(ctx context.Context, id uint64, taxonomy string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM terms WHERE term_id = ? AND taxonomy = ?`, id, taxonomy)
	return err
}
