// Package reporting aggregates call detail records into the figures
// shown on the supervision dashboard.
package reporting

import "callboard/internal/database"

// Summary is an aggregate view over a slice of call records.
type Summary struct {
	Total          int     `json:"total"`
	Answered       int     `json:"answered"`
	NoAnswer       int     `json:"no_answer"`
	Busy           int     `json:"busy"`
	Failed         int     `json:"failed"`
	AnswerRate     float64 `json:"answer_rate"`
	AvgDurationSec float64 `json:"avg_duration_sec"`
	AvgTalkSec     float64 `json:"avg_talk_sec"`

	ByQueue    []GroupStats `json:"by_queue"`
	ByOperator []GroupStats `json:"by_operator"`
}

// GroupStats is a summary bucket keyed by queue context or operator
// extension.
type GroupStats struct {
	Key        string  `json:"key"`
	Total      int     `json:"total"`
	Answered   int     `json:"answered"`
	AnswerRate float64 `json:"answer_rate"`
	AvgTalkSec float64 `json:"avg_talk_sec"`
}

// Summarize computes the aggregate figures for a set of calls. Averages
// over zero calls are zero, not NaN. Group order follows first
// appearance in the input, which is newest-first for repository queries.
func Summarize(calls []database.Call) Summary {
	s := Summary{Total: len(calls)}
	if len(calls) == 0 {
		return s
	}

	var totalDuration, totalTalk int
	byQueue := newGrouper()
	byOperator := newGrouper()

	for _, c := range calls {
		switch c.Disposition {
		case "ANSWERED":
			s.Answered++
		case "NO ANSWER":
			s.NoAnswer++
		case "BUSY":
			s.Busy++
		default:
			s.Failed++
		}
		totalDuration += c.Duration
		totalTalk += c.Billsec

		byQueue.add(c.DContext, c)
		byOperator.add(c.Src, c)
	}

	s.AnswerRate = float64(s.Answered) / float64(s.Total)
	s.AvgDurationSec = float64(totalDuration) / float64(s.Total)
	s.AvgTalkSec = float64(totalTalk) / float64(s.Total)
	s.ByQueue = byQueue.stats()
	s.ByOperator = byOperator.stats()
	return s
}

type grouper struct {
	order   []string
	buckets map[string]*bucket
}

type bucket struct {
	total    int
	answered int
	talk     int
}

func newGrouper() *grouper {
	return &grouper{buckets: make(map[string]*bucket)}
}

func (g *grouper) add(key string, c database.Call) {
	if key == "" {
		return
	}
	b, ok := g.buckets[key]
	if !ok {
		b = &bucket{}
		g.buckets[key] = b
		g.order = append(g.order, key)
	}
	b.total++
	if c.Disposition == "ANSWERED" {
		b.answered++
	}
	b.talk += c.Billsec
}

func (g *grouper) stats() []GroupStats {
	out := make([]GroupStats, 0, len(g.order))
	for _, key := range g.order {
		b := g.buckets[key]
		out = append(out, GroupStats{
			Key:        key,
			Total:      b.total,
			Answered:   b.answered,
			AnswerRate: float64(b.answered) / float64(b.total),
			AvgTalkSec: float64(b.talk) / float64(b.total),
		})
	}
	return out
}
