// Package stats computes per-exam analytics over the finished attempt
// corpus: average score, a fixed five-bucket distribution, and the
// most-missed-question ranking.
package stats

import (
	"context"
	"log"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/AdhamEssa01/accademy/internal/domain"
)

// Catalog is the exam-side read surface.
type Catalog interface {
	GetExam(ctx context.Context, id string) (domain.Exam, error)
	ListExamQuestions(ctx context.Context, examID string) ([]domain.ExamQuestion, error)
}

// Attempts is the attempt-side read surface.
type Attempts interface {
	ListTotalsByExam(ctx context.Context, examID string) ([]float64, error)
	CountHitsByQuestion(ctx context.Context, examID string) (map[string]int, error)
}

type Aggregator struct {
	catalog  Catalog
	attempts Attempts
	cache    *Cache // nil disables caching
}

func NewAggregator(catalog Catalog, attempts Attempts, cache *Cache) *Aggregator {
	return &Aggregator{catalog: catalog, attempts: attempts, cache: cache}
}

// The five fixed percentage buckets of the score distribution.
var bucketRanges = []struct {
	label    string
	min, max int
}{
	{"0-59", 0, 59},
	{"60-69", 60, 69},
	{"70-79", 70, 79},
	{"80-89", 80, 89},
	{"90-100", 90, 100},
}

// GetStats aggregates every attempt whose assignment belongs to the exam.
// Reads run concurrently; they only aggregate committed rows, so no
// isolation beyond read-committed is needed.
func (g *Aggregator) GetStats(ctx context.Context, examID string) (domain.ExamStats, error) {
	if snap, ok := g.cache.Get(ctx, examID); ok {
		return snap, nil
	}
	if _, err := g.catalog.GetExam(ctx, examID); err != nil {
		return domain.ExamStats{}, err
	}

	var (
		links  []domain.ExamQuestion
		totals []float64
		hits   map[string]int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		links, err = g.catalog.ListExamQuestions(egCtx, examID)
		return err
	})
	eg.Go(func() error {
		var err error
		totals, err = g.attempts.ListTotalsByExam(egCtx, examID)
		return err
	})
	eg.Go(func() error {
		var err error
		hits, err = g.attempts.CountHitsByQuestion(egCtx, examID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return domain.ExamStats{}, err
	}

	maxScore := 0.0
	for _, l := range links {
		maxScore += l.Points
	}

	out := domain.ExamStats{
		ExamID:        examID,
		AttemptsCount: len(totals),
		AverageScore:  averageScore(totals),
		Distribution:  distribution(totals, maxScore),
		MostMissed:    mostMissed(links, hits, len(totals)),
	}
	g.cache.Set(ctx, examID, out)
	return out, nil
}

func averageScore(totals []float64) float64 {
	if len(totals) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range totals {
		sum += t
	}
	return math.Round(sum/float64(len(totals))*100) / 100
}

func distribution(totals []float64, maxScore float64) []domain.ScoreBucket {
	buckets := make([]domain.ScoreBucket, len(bucketRanges))
	for i, r := range bucketRanges {
		buckets[i] = domain.ScoreBucket{Label: r.label, Min: r.min, Max: r.max}
	}
	for _, t := range totals {
		pct := 0
		if maxScore > 0 {
			pct = int(math.Round(t / maxScore * 100))
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		for i := range buckets {
			if pct >= buckets[i].Min && pct <= buckets[i].Max {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// mostMissed ranks exam questions by how many attempts missed them: an
// attempt misses a question unless its answer was marked correct or
// scored above zero. Top five, ties broken by question id.
func mostMissed(links []domain.ExamQuestion, hits map[string]int, attemptsCount int) []domain.MissedQuestion {
	if attemptsCount == 0 || len(links) == 0 {
		return nil
	}
	missed := make([]domain.MissedQuestion, 0, len(links))
	for _, l := range links {
		missed = append(missed, domain.MissedQuestion{
			QuestionID: l.QuestionID,
			MissCount:  attemptsCount - hits[l.QuestionID],
		})
	}
	sort.Slice(missed, func(i, j int) bool {
		if missed[i].MissCount != missed[j].MissCount {
			return missed[i].MissCount > missed[j].MissCount
		}
		return missed[i].QuestionID < missed[j].QuestionID
	})
	if len(missed) > 5 {
		missed = missed[:5]
	}
	return missed
}

// logErr keeps cache failures out of the request path.
func logErr(err error) {
	if err != nil {
		log.Printf("stats cache: %v", err)
	}
}
