package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rating(value int, weight float64) QuestionRating {
	return QuestionRating{QuestionID: int64(value), Rating: value, Weight: weight}
}

func TestComputeWeightedScore(t *testing.T) {
	t.Run("uniform weights", func(t *testing.T) {
		score, grade, err := ComputeWeightedScore([]QuestionRating{
			rating(5, 1), rating(4, 1),
		})
		require.NoError(t, err)
		assert.InDelta(t, 90.0, score, 1e-9)
		assert.Equal(t, GradeA, grade)
	})

	t.Run("weight skews the score", func(t *testing.T) {
		// (5*4 + 4*1) / (5 * 5) = 0.96
		score, grade, err := ComputeWeightedScore([]QuestionRating{
			{QuestionID: 1, Rating: 5, Weight: 4},
			{QuestionID: 2, Rating: 4, Weight: 1},
		})
		require.NoError(t, err)
		assert.InDelta(t, 96.0, score, 1e-9)
		assert.Equal(t, GradeAPlus, grade)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		ratings := []QuestionRating{rating(3, 1.5), rating(5, 0.5), rating(2, 2)}
		s1, g1, err := ComputeWeightedScore(ratings)
		require.NoError(t, err)
		s2, g2, err := ComputeWeightedScore(ratings)
		require.NoError(t, err)
		assert.Equal(t, s1, s2)
		assert.Equal(t, g1, g2)
	})

	t.Run("monotonic in any single rating", func(t *testing.T) {
		base := []QuestionRating{rating(2, 1), rating(3, 2), rating(4, 0.5)}
		prev := -1.0
		for r := 1; r <= RatingMax; r++ {
			ratings := append([]QuestionRating{}, base...)
			ratings[1].Rating = r
			score, _, err := ComputeWeightedScore(ratings)
			require.NoError(t, err)
			assert.Greater(t, score, prev)
			prev = score
		}
	})

	t.Run("zero total weight", func(t *testing.T) {
		_, _, err := ComputeWeightedScore([]QuestionRating{
			{QuestionID: 1, Rating: 5, Weight: 0},
		})
		assert.ErrorIs(t, err, ErrInvalidScoringInput)
	})

	t.Run("empty ratings", func(t *testing.T) {
		_, _, err := ComputeWeightedScore(nil)
		assert.ErrorIs(t, err, ErrInvalidScoringInput)
	})

	t.Run("rating out of range", func(t *testing.T) {
		_, _, err := ComputeWeightedScore([]QuestionRating{{QuestionID: 1, Rating: 6, Weight: 1}})
		assert.ErrorIs(t, err, ErrInvalidScoringInput)

		_, _, err = ComputeWeightedScore([]QuestionRating{{QuestionID: 1, Rating: 0, Weight: 1}})
		assert.ErrorIs(t, err, ErrInvalidScoringInput)
	})

	t.Run("negative weight", func(t *testing.T) {
		_, _, err := ComputeWeightedScore([]QuestionRating{{QuestionID: 1, Rating: 3, Weight: -1}})
		assert.ErrorIs(t, err, ErrInvalidScoringInput)
	})
}

func TestGradeFor(t *testing.T) {
	cases := []struct {
		score    float64
		expected Grade
	}{
		{100, GradeAPlus},
		{95.0, GradeAPlus},
		{94.999, GradeA},
		{90.0, GradeA},
		{89.999, GradeBPlus},
		{85.0, GradeBPlus},
		{84.999, GradeB},
		{80.0, GradeB},
		{79.999, GradeC},
		{70.0, GradeC},
		{69.999, GradeD},
		{60.0, GradeD},
		{59.999, GradeF},
		{0, GradeF},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, GradeFor(tc.score), "score %v", tc.score)
	}
}

func feedbackRow(facultyID int64, subject string, score float64) FacultyFeedback {
	return FacultyFeedback{
		FacultyID:     facultyID,
		Subject:       subject,
		WeightedScore: score,
		Grade:         GradeFor(score),
	}
}

func TestAggregate(t *testing.T) {
	t.Run("empty input yields zero summary", func(t *testing.T) {
		summary := Aggregate(nil)
		assert.Equal(t, 0, summary.TotalResponses)
		assert.Empty(t, summary.GradeDistribution)
		assert.Zero(t, summary.AverageScore)
	})

	t.Run("three respondents three faculty", func(t *testing.T) {
		summary := Aggregate([]FacultyFeedback{
			feedbackRow(1, "Math", 96),
			feedbackRow(2, "Physics", 82),
			feedbackRow(3, "Chemistry", 58),
		})

		assert.Equal(t, 3, summary.TotalResponses)
		assert.InDelta(t, 78.67, summary.AverageScore, 0.01)
		assert.Equal(t, 96.0, summary.Highest)
		assert.Equal(t, 58.0, summary.Lowest)
		assert.Equal(t, map[Grade]int{GradeAPlus: 1, GradeB: 1, GradeF: 1}, summary.GradeDistribution)
	})

	t.Run("group means computed before section average", func(t *testing.T) {
		// Faculty 1 has two respondents (90, 70 -> group mean 80), faculty 2
		// has one (60). Section average is (80+60)/2, not (90+70+60)/3.
		summary := Aggregate([]FacultyFeedback{
			feedbackRow(1, "Math", 90),
			feedbackRow(1, "Math", 70),
			feedbackRow(2, "Math", 60),
		})

		assert.Equal(t, 3, summary.TotalResponses)
		assert.InDelta(t, 70.0, summary.AverageScore, 1e-9)
		assert.Equal(t, 90.0, summary.Highest)
		assert.Equal(t, 60.0, summary.Lowest)
	})

	t.Run("histogram counts respondents not groups", func(t *testing.T) {
		summary := Aggregate([]FacultyFeedback{
			feedbackRow(1, "Math", 96),
			feedbackRow(1, "Math", 97),
		})
		assert.Equal(t, 2, summary.GradeDistribution[GradeAPlus])
	})

	t.Run("same faculty different subjects are distinct groups", func(t *testing.T) {
		summary := Aggregate([]FacultyFeedback{
			feedbackRow(1, "Math", 100),
			feedbackRow(1, "Physics", 50),
		})
		assert.InDelta(t, 75.0, summary.AverageScore, 1e-9)
	})
}
