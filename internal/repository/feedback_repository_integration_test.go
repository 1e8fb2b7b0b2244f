package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/report-server/internal/repository"
	"github.com/campuspulse/report-server/internal/scoring"
)

func seedFeedback(t *testing.T, db *sql.DB, facultyID int64, name, subject string, ratings [][2]float64) {
	t.Helper()

	res, err := db.Exec(`
		INSERT INTO faculty_feedback (faculty_id, faculty_name, subject, section, semester, academic_year, comments, created_at)
		VALUES (?, ?, ?, 'A', 'Fall', '2025', 'solid teaching', '2025-10-01T00:00:00Z')
	`, facultyID, name, subject)
	require.NoError(t, err)
	feedbackID, err := res.LastInsertId()
	require.NoError(t, err)

	for i, r := range ratings {
		_, err := db.Exec(`
			INSERT INTO feedback_ratings (feedback_id, question_id, question_text, rating, weight)
			VALUES (?, ?, ?, ?, ?)
		`, feedbackID, i+1, "question", int(r[0]), r[1])
		require.NoError(t, err)
	}
}

func TestFeedbackRepository_FetchFeedback(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.NewFeedbackRepository(db)

	// 100 * (5*4 + 4*1) / (5 * 5) = 96
	seedFeedback(t, db, 1, "Dr. Auma", "Math", [][2]float64{{5, 4}, {4, 1}})
	// 100 * (5*7 + 2*3) / (5 * 10) = 82
	seedFeedback(t, db, 2, "Dr. Okello", "Physics", [][2]float64{{5, 7}, {2, 3}})

	t.Run("scores are recomputed from ratings on load", func(t *testing.T) {
		rows, err := repo.FetchFeedback(ctx, repository.FeedbackQuery{
			Section: "A", Semester: "Fall", AcademicYear: "2025",
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "Dr. Auma", rows[0].FacultyName)
		assert.Len(t, rows[0].Ratings, 2)
		assert.InDelta(t, 96.0, rows[0].WeightedScore, 1e-9)
		assert.Equal(t, scoring.GradeAPlus, rows[0].Grade)

		assert.InDelta(t, 82.0, rows[1].WeightedScore, 1e-9)
		assert.Equal(t, scoring.GradeB, rows[1].Grade)
	})

	t.Run("faculty filter narrows the cohort", func(t *testing.T) {
		rows, err := repo.FetchFeedback(ctx, repository.FeedbackQuery{
			Section: "A", Semester: "Fall", AcademicYear: "2025", FacultyID: 2,
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Dr. Okello", rows[0].FacultyName)
	})

	t.Run("empty cohort is not an error", func(t *testing.T) {
		rows, err := repo.FetchFeedback(ctx, repository.FeedbackQuery{
			Section: "Z", Semester: "Fall", AcademicYear: "2025",
		})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("malformed ratings surface as scoring errors", func(t *testing.T) {
		seedFeedback(t, db, 3, "Dr. Nankya", "Chemistry", [][2]float64{{9, 1}})

		_, err := repo.FetchFeedback(ctx, repository.FeedbackQuery{
			Section: "A", Semester: "Fall", AcademicYear: "2025",
		})
		assert.ErrorIs(t, err, scoring.ErrInvalidScoringInput)
	})
}
