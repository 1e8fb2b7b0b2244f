package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campuspulse/report-server/internal/scoring"
)

var ErrFeedbackUnavailable = errors.New("feedback store unavailable")

// FeedbackQuery keys a cohort of feedback rows. FacultyID narrows the query
// to one faculty when non-zero.
type FeedbackQuery struct {
	Section      string
	Semester     string
	AcademicYear string
	FacultyID    int64
}

// FeedbackRepository is the read-only view onto the feedback data store the
// surrounding application writes to. The pipeline never mutates it.
type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// FetchFeedback loads a cohort's feedback rows with their ratings. The
// cached weighted score and grade on each row are recomputed from the raw
// ratings on load, so they can never drift from their inputs.
func (r *FeedbackRepository) FetchFeedback(ctx context.Context, q FeedbackQuery) ([]scoring.FacultyFeedback, error) {
	query := `
		SELECT id, faculty_id, faculty_name, subject, section, semester, academic_year, comments
		FROM faculty_feedback
		WHERE section = ? AND semester = ? AND academic_year = ?
	`
	args := []any{q.Section, q.Semester, q.AcademicYear}
	if q.FacultyID != 0 {
		query += ` AND faculty_id = ?`
		args = append(args, q.FacultyID)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query feedback: %v", ErrFeedbackUnavailable, err)
	}
	defer rows.Close()

	var out []scoring.FacultyFeedback
	index := make(map[int64]int)
	for rows.Next() {
		var f scoring.FacultyFeedback
		if err := rows.Scan(&f.ID, &f.FacultyID, &f.FacultyName, &f.Subject,
			&f.Section, &f.Semester, &f.AcademicYear, &f.Comments); err != nil {
			return nil, fmt.Errorf("%w: scan feedback row: %v", ErrFeedbackUnavailable, err)
		}
		index[f.ID] = len(out)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate feedback rows: %v", ErrFeedbackUnavailable, err)
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := r.attachRatings(ctx, out, index); err != nil {
		return nil, err
	}

	for i := range out {
		score, grade, err := scoring.ComputeWeightedScore(out[i].Ratings)
		if err != nil {
			return nil, fmt.Errorf("score feedback %d: %w", out[i].ID, err)
		}
		out[i].WeightedScore = score
		out[i].Grade = grade
	}
	return out, nil
}

func (r *FeedbackRepository) attachRatings(ctx context.Context, feedback []scoring.FacultyFeedback, index map[int64]int) error {
	query := `
		SELECT feedback_id, question_id, question_text, rating, weight
		FROM feedback_ratings
		WHERE feedback_id IN (`
	args := make([]any, 0, len(feedback))
	for i, f := range feedback {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, f.ID)
	}
	query += `) ORDER BY feedback_id, question_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: query ratings: %v", ErrFeedbackUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var feedbackID int64
		var qr scoring.QuestionRating
		if err := rows.Scan(&feedbackID, &qr.QuestionID, &qr.QuestionText, &qr.Rating, &qr.Weight); err != nil {
			return fmt.Errorf("%w: scan rating row: %v", ErrFeedbackUnavailable, err)
		}
		if i, ok := index[feedbackID]; ok {
			feedback[i].Ratings = append(feedback[i].Ratings, qr)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate rating rows: %v", ErrFeedbackUnavailable, err)
	}
	return nil
}
