package scoring

// RatingMax is the fixed upper bound of the rating scale.
const RatingMax = 5

// Grade is the letter bucket a weighted score falls into.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// QuestionRating is one respondent's answer to one survey question.
// Created at submission time and never mutated afterwards.
type QuestionRating struct {
	QuestionID   int64
	QuestionText string
	Rating       int
	Weight       float64
}

// FacultyFeedback is one respondent's full evaluation of a faculty/subject
// pair. WeightedScore and Grade are derived from Ratings and cached on the
// struct; they are recomputed from Ratings on load, never edited on their own.
type FacultyFeedback struct {
	ID            int64
	FacultyID     int64
	FacultyName   string
	Subject       string
	Section       string
	Semester      string
	AcademicYear  string
	Ratings       []QuestionRating
	Comments      string
	WeightedScore float64
	Grade         Grade
}

// SectionSummaryMetrics aggregates many feedback rows for one cohort
// (section x subject x period). Always recomputable from the underlying rows.
type SectionSummaryMetrics struct {
	TotalResponses    int
	AverageScore      float64
	Highest           float64
	Lowest            float64
	GradeDistribution map[Grade]int
}
