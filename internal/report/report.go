// Package report aggregates stored submissions into the summaries shown
// on teacher and student dashboards. All functions are pure and operate
// on already-loaded data.
package report

import (
	"sort"
	"time"

	"github.com/edumap/selserver/internal/model"
)

// SimulationStat tracks one student's attempts at one class simulation.
// A simulation is keyed by class name and subject, so re-created classes
// with the same name and subject count as the same simulation.
type SimulationStat struct {
	SimulationKey string  `json:"simulationKey"`
	ClassName     string  `json:"className"`
	Subject       string  `json:"subject"`
	FirstScore    float64 `json:"firstScore"`
	LastScore     float64 `json:"lastScore"`
	Improvement   float64 `json:"improvement"`
	TotalAttempts int     `json:"totalAttempts"`
}

// StudentSummary is the per-student row on the teacher's report page.
type StudentSummary struct {
	StudentID        string           `json:"studentId"`
	Username         string           `json:"username"`
	TotalSubmissions int              `json:"totalSubmissions"`
	AverageScore     float64          `json:"averageScore"`
	Simulations      []SimulationStat `json:"simulations"`
	LatestSubmission time.Time        `json:"latestSubmission"`
}

// Dashboard is the teacher landing-page summary.
type Dashboard struct {
	ActiveClasses   int    `json:"activeClasses"`
	TotalStudents   int    `json:"totalStudents"`
	MostCommonTopic string `json:"mostCommonTopic"`
}

// ProgressPoint is one scored submission on a student's progress chart.
type ProgressPoint struct {
	ClassCode    string                       `json:"classCode"`
	ClassName    string                       `json:"className"`
	Subject      string                       `json:"subject"`
	OverallScore float64                      `json:"overallScore"`
	Competencies map[model.Competency]float64 `json:"competencies"`
	SubmittedAt  time.Time                    `json:"submittedAt"`
}

func simulationKey(c model.Class) string {
	return c.ClassName + "-" + c.Subject
}

// StudentSummaries aggregates every submission across the given classes
// into one summary per student. Submissions with a blank student ID are
// skipped; unscored submissions count toward attempt totals but not
// toward averages. usernames maps student IDs to display names and may
// be incomplete. Results are sorted by latest submission, newest first.
func StudentSummaries(classes []model.Class, usernames map[string]string) []StudentSummary {
	type simAgg struct {
		stat   SimulationStat
		scores []scoredAt
	}
	type studentAgg struct {
		summary StudentSummary
		sims    map[string]*simAgg
		scores  []float64
	}

	students := make(map[string]*studentAgg)

	for _, class := range classes {
		key := simulationKey(class)
		for _, sub := range class.Submissions {
			if sub.StudentID == "" {
				continue
			}
			agg, ok := students[sub.StudentID]
			if !ok {
				agg = &studentAgg{
					summary: StudentSummary{
						StudentID: sub.StudentID,
						Username:  usernames[sub.StudentID],
					},
					sims: make(map[string]*simAgg),
				}
				students[sub.StudentID] = agg
			}

			agg.summary.TotalSubmissions++
			if sub.SubmittedAt.After(agg.summary.LatestSubmission) {
				agg.summary.LatestSubmission = sub.SubmittedAt
			}

			sim, ok := agg.sims[key]
			if !ok {
				sim = &simAgg{stat: SimulationStat{
					SimulationKey: key,
					ClassName:     class.ClassName,
					Subject:       class.Subject,
				}}
				agg.sims[key] = sim
			}
			sim.stat.TotalAttempts++
			if sub.Analysis != nil {
				sim.scores = append(sim.scores, scoredAt{sub.Analysis.OverallScore, sub.SubmittedAt})
				agg.scores = append(agg.scores, sub.Analysis.OverallScore)
			}
		}
	}

	out := make([]StudentSummary, 0, len(students))
	for _, agg := range students {
		for _, sim := range agg.sims {
			if len(sim.scores) > 0 {
				sort.SliceStable(sim.scores, func(i, j int) bool {
					return sim.scores[i].at.Before(sim.scores[j].at)
				})
				sim.stat.FirstScore = sim.scores[0].score
				sim.stat.LastScore = sim.scores[len(sim.scores)-1].score
				sim.stat.Improvement = sim.stat.LastScore - sim.stat.FirstScore
			}
			agg.summary.Simulations = append(agg.summary.Simulations, sim.stat)
		}
		sort.Slice(agg.summary.Simulations, func(i, j int) bool {
			return agg.summary.Simulations[i].SimulationKey < agg.summary.Simulations[j].SimulationKey
		})
		agg.summary.AverageScore = mean(agg.scores)
		out = append(out, agg.summary)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LatestSubmission.Equal(out[j].LatestSubmission) {
			return out[i].LatestSubmission.After(out[j].LatestSubmission)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

type scoredAt struct {
	score float64
	at    time.Time
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// CompetencyAverages computes the mean score per CASEL competency over
// all analyzed submissions. Unscored submissions are ignored; with no
// scored submissions every average is 0.
func CompetencyAverages(subs []model.Submission) map[model.Competency]float64 {
	sums := make(map[model.Competency]float64)
	n := 0
	for _, sub := range subs {
		if sub.Analysis == nil {
			continue
		}
		n++
		for c, s := range sub.Analysis.CompetencyScores() {
			sums[c] += s.Score
		}
	}

	out := make(map[model.Competency]float64, len(model.Competencies()))
	for _, c := range model.Competencies() {
		if n > 0 {
			out[c] = sums[c] / float64(n)
		} else {
			out[c] = 0
		}
	}
	return out
}

// CompetencySeries turns a student's scored submissions across classes
// into a chronological progress series.
func CompetencySeries(classes []model.Class, studentID string) []ProgressPoint {
	var points []ProgressPoint
	for _, class := range classes {
		for _, sub := range class.Submissions {
			if sub.StudentID != studentID || sub.Analysis == nil {
				continue
			}
			comp := make(map[model.Competency]float64)
			for c, s := range sub.Analysis.CompetencyScores() {
				comp[c] = s.Score
			}
			points = append(points, ProgressPoint{
				ClassCode:    class.ClassCode,
				ClassName:    class.ClassName,
				Subject:      class.Subject,
				OverallScore: sub.Analysis.OverallScore,
				Competencies: comp,
				SubmittedAt:  sub.SubmittedAt,
			})
		}
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].SubmittedAt.Before(points[j].SubmittedAt)
	})
	return points
}

// TeacherDashboard summarizes a teacher's classes: how many classes are
// active, how many distinct students submitted, and the most common
// subject. Ties on subject frequency break alphabetically.
func TeacherDashboard(classes []model.Class) Dashboard {
	students := make(map[string]bool)
	topics := make(map[string]int)
	for _, class := range classes {
		topics[class.Subject]++
		for _, sub := range class.Submissions {
			if sub.StudentID != "" {
				students[sub.StudentID] = true
			}
		}
	}

	var top string
	for topic, n := range topics {
		if top == "" || n > topics[top] || (n == topics[top] && topic < top) {
			top = topic
		}
	}

	return Dashboard{
		ActiveClasses:   len(classes),
		TotalStudents:   len(students),
		MostCommonTopic: top,
	}
}
