package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/jan-barg/lectorius/internal/model"
)

type PassageRepo struct {
	db *sql.DB
}

func NewPassageRepo(db *sql.DB) *PassageRepo {
	return &PassageRepo{db: db}
}

// Search returns the closest passages to the query embedding, restricted to
// chunk_index <= maxChunkIndex inside the query itself. The spoiler bound is
// part of the index lookup, never a post-filter.
func (r *PassageRepo) Search(ctx context.Context, bookID string, embedding []float32, maxChunkIndex int, limit int) ([]model.RetrievedPassage, error) {
	const query = `
		SELECT chunk_id, chunk_index, chapter_id
		FROM passages
		WHERE book_id = $1 AND chunk_index <= $2
		ORDER BY embedding <=> $3
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, bookID, maxChunkIndex, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RetrievedPassage
	for rows.Next() {
		var p model.RetrievedPassage
		if err := rows.Scan(&p.ChunkID, &p.ChunkIndex, &p.ChapterID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert stores the embedding for one chunk, replacing any previous vector.
func (r *PassageRepo) Upsert(ctx context.Context, chunk *model.Chunk, modelName string, embedding []float32, now int64) error {
	const query = `
		INSERT INTO passages (book_id, chunk_id, chapter_id, chunk_index, model_name, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (book_id, chunk_id) DO UPDATE SET
			chapter_id = EXCLUDED.chapter_id,
			chunk_index = EXCLUDED.chunk_index,
			model_name = EXCLUDED.model_name,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		chunk.BookID,
		chunk.ChunkID,
		chunk.ChapterID,
		chunk.ChunkIndex,
		modelName,
		pgvector.NewVector(embedding),
		now,
	)
	return err
}

func (r *PassageRepo) CountByBook(ctx context.Context, bookID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM passages WHERE book_id = $1`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, bookID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
