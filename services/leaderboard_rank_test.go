package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func candidate(points, badges int, enrolled time.Time) *lbCandidate {
	return &lbCandidate{
		UserID:     uuid.New(),
		Points:     points,
		BadgeCount: badges,
		EnrolledAt: enrolled,
	}
}

func ranks(cands []*lbCandidate) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.Rank
	}
	return out
}

func pointTotals(cands []*lbCandidate) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.Points
	}
	return out
}

func TestRankCandidatesCompetitionRanking(t *testing.T) {
	now := time.Now()
	cands := []*lbCandidate{
		candidate(200, 0, now),
		candidate(300, 1, now),
		candidate(300, 0, now),
	}

	rankCandidates(cands)

	assert.Equal(t, []int{300, 300, 200}, pointTotals(cands))
	assert.Equal(t, []int{1, 1, 3}, ranks(cands), "two tied firsts push the next rank to 3")
}

func TestRankCandidatesBadgeTieBreak(t *testing.T) {
	now := time.Now()
	fewer := candidate(100, 1, now)
	more := candidate(100, 4, now)
	cands := []*lbCandidate{fewer, more}

	rankCandidates(cands)

	assert.Equal(t, more.UserID, cands[0].UserID, "more badges listed first")
	assert.Equal(t, 1, cands[0].Rank)
	assert.Equal(t, 1, cands[1].Rank, "equal points share a rank regardless of badges")
}

func TestRankCandidatesEnrollmentTieBreak(t *testing.T) {
	early := candidate(100, 2, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	late := candidate(100, 2, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	cands := []*lbCandidate{late, early}

	rankCandidates(cands)

	assert.Equal(t, early.UserID, cands[0].UserID, "earlier enrollment listed first")
	assert.Equal(t, 1, cands[0].Rank)
	assert.Equal(t, 1, cands[1].Rank)
}

func TestRankCandidatesDistinctTotals(t *testing.T) {
	now := time.Now()
	cands := []*lbCandidate{
		candidate(50, 0, now),
		candidate(500, 0, now),
		candidate(150, 0, now),
		candidate(75, 0, now),
	}

	rankCandidates(cands)

	assert.Equal(t, []int{500, 150, 75, 50}, pointTotals(cands))
	assert.Equal(t, []int{1, 2, 3, 4}, ranks(cands))
}

func TestRankCandidatesEmpty(t *testing.T) {
	var cands []*lbCandidate
	rankCandidates(cands)
	assert.Empty(t, cands)
}
