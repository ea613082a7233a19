package notify

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
)

func TestSuccessBodyContainsGradeAndBreakdown(t *testing.T) {
	result := models.GradingResult{
		StudentName:  "Ada Lovelace",
		OverallGrade: "27/30",
		Feedback:     "Strong work overall.",
		CriteriaScores: []models.CriterionScore{
			{Criterion: "Clarity of writing", Score: 9, Justification: "Clear prose"},
			{Criterion: "Accuracy of content", Score: 10},
		},
	}

	body := SuccessBody(result)

	require.Contains(t, body, "Ada Lovelace")
	require.Contains(t, body, "Overall grade: 27/30")
	require.Contains(t, body, "Strong work overall.")
	require.Contains(t, body, "- Clarity of writing: 9 (Clear prose)")
	require.Contains(t, body, "- Accuracy of content: 10")
}

func TestSuccessBodyPreservesBracesVerbatim(t *testing.T) {
	result := models.GradingResult{
		StudentName:  "Grace",
		OverallGrade: "20/30",
		Feedback:     "Your function body { return x } misses the edge case {empty}.",
	}

	body := SuccessBody(result)

	require.Contains(t, body, "{ return x }")
	require.Contains(t, body, "{empty}")
}

func TestSuccessBodyStripsMarkup(t *testing.T) {
	result := models.GradingResult{
		StudentName:  "Grace",
		OverallGrade: "20/30",
		Feedback:     "Good <script>alert(1)</script>work.",
	}

	body := SuccessBody(result)

	require.NotContains(t, body, "<script>")
	require.Contains(t, body, "work.")
}

func TestErrorBodyApologizesWithoutInternals(t *testing.T) {
	body := ErrorBody("the grading service was unavailable")

	require.Contains(t, body, "sorry")
	require.Contains(t, body, "the grading service was unavailable")
	require.NotContains(t, body, "{\"")
}

func TestFeedbackSubject(t *testing.T) {
	require.Equal(t, "Your assignment feedback", FeedbackSubject(""))
	require.Equal(t, "Re: Homework 3", FeedbackSubject("Homework 3"))
	require.Equal(t, "Re: Homework 3", FeedbackSubject("Re: Homework 3"))
}

func TestLogNotifierNeverFails(t *testing.T) {
	notifier := NewLogNotifier(zerolog.New(io.Discard))

	require.NoError(t, notifier.SendSuccess(context.Background(), "a@example.com", "HW", models.GradingResult{}))
	require.NoError(t, notifier.SendError(context.Background(), "a@example.com", "HW", "reason"))
}
