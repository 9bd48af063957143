package reporting_test

import (
	"math"
	"testing"

	"callboard/internal/database"
	"callboard/internal/reporting"
)

func call(src, dcontext, disposition string, duration, billsec int) database.Call {
	return database.Call{
		Src:         src,
		DContext:    dcontext,
		Disposition: disposition,
		Duration:    duration,
		Billsec:     billsec,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarizeEmpty(t *testing.T) {
	s := reporting.Summarize(nil)
	if s.Total != 0 || s.AnswerRate != 0 || s.AvgTalkSec != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if len(s.ByQueue) != 0 || len(s.ByOperator) != 0 {
		t.Errorf("expected no groups, got %+v", s)
	}
}

func TestSummarizeCountsDispositions(t *testing.T) {
	calls := []database.Call{
		call("1001", "support", "ANSWERED", 60, 50),
		call("1001", "support", "NO ANSWER", 30, 0),
		call("1002", "sales", "BUSY", 5, 0),
		call("1002", "sales", "FAILED", 1, 0),
		call("1002", "sales", "ANSWERED", 120, 110),
	}

	s := reporting.Summarize(calls)

	if s.Total != 5 || s.Answered != 2 || s.NoAnswer != 1 || s.Busy != 1 || s.Failed != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if !approx(s.AnswerRate, 0.4) {
		t.Errorf("expected answer rate 0.4, got %v", s.AnswerRate)
	}
	if !approx(s.AvgDurationSec, 216.0/5) {
		t.Errorf("expected avg duration %v, got %v", 216.0/5, s.AvgDurationSec)
	}
	if !approx(s.AvgTalkSec, 160.0/5) {
		t.Errorf("expected avg talk %v, got %v", 160.0/5, s.AvgTalkSec)
	}
}

func TestSummarizeGroupsByQueueAndOperator(t *testing.T) {
	calls := []database.Call{
		call("1001", "support", "ANSWERED", 60, 40),
		call("1002", "sales", "NO ANSWER", 30, 0),
		call("1001", "support", "ANSWERED", 20, 20),
	}

	s := reporting.Summarize(calls)

	if len(s.ByQueue) != 2 {
		t.Fatalf("expected 2 queue groups, got %+v", s.ByQueue)
	}
	support := s.ByQueue[0]
	if support.Key != "support" || support.Total != 2 || support.Answered != 2 {
		t.Errorf("unexpected support group: %+v", support)
	}
	if !approx(support.AvgTalkSec, 30) {
		t.Errorf("expected support avg talk 30, got %v", support.AvgTalkSec)
	}

	if len(s.ByOperator) != 2 || s.ByOperator[0].Key != "1001" {
		t.Fatalf("expected operator groups [1001 1002], got %+v", s.ByOperator)
	}
	if !approx(s.ByOperator[1].AnswerRate, 0) {
		t.Errorf("expected 1002 answer rate 0, got %v", s.ByOperator[1].AnswerRate)
	}
}

func TestSummarizeSkipsEmptyGroupKeys(t *testing.T) {
	calls := []database.Call{
		call("", "", "ANSWERED", 10, 10),
	}

	s := reporting.Summarize(calls)
	if len(s.ByQueue) != 0 || len(s.ByOperator) != 0 {
		t.Errorf("expected no groups for blank keys, got %+v", s)
	}
}
