package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/jan-barg/lectorius/internal/model"
	"github.com/jan-barg/lectorius/internal/pkg/dbutil"
)

type QuestionLogRepo struct {
	db *sql.DB
}

func NewQuestionLogRepo(db *sql.DB) *QuestionLogRepo {
	return &QuestionLogRepo{db: db}
}

func (r *QuestionLogRepo) Insert(ctx context.Context, entry *model.QuestionLog) error {
	data := map[string]interface{}{
		"ip":        entry.IP,
		"user_name": entry.UserName,
		"book_id":   entry.BookID,
		"question":  entry.Question,
		"ctime":     entry.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("question_log", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *QuestionLogRepo) ListByBook(ctx context.Context, bookID string, limit int) ([]model.QuestionLog, error) {
	where := map[string]interface{}{
		"book_id":  bookID,
		"_orderby": "ctime desc",
		"_limit":   []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("question_log", where,
		[]string{"id", "ip", "user_name", "book_id", "question", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QuestionLog
	for rows.Next() {
		var entry model.QuestionLog
		var userName sql.NullString
		if err := rows.Scan(&entry.ID, &entry.IP, &userName, &entry.BookID, &entry.Question, &entry.Ctime); err != nil {
			return nil, err
		}
		entry.UserName = userName.String
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *QuestionLogRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM question_log WHERE ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
