package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurechain/procurechain/internal/errors"
	"github.com/procurechain/procurechain/internal/ledger"
	"github.com/procurechain/procurechain/internal/scoring"
)

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	engine, err := scoring.NewEngine(scoring.DefaultConfig(), nil)
	require.NoError(t, err)

	return NewService(repo, ledger.New(repo), engine), repo
}

func seedVendor(t *testing.T, repo *Repository, name string) *Vendor {
	t.Helper()
	v := NewVendor(name, name+"@example.com", "hash", "REG-"+name)
	require.NoError(t, repo.CreateVendor(v))
	return v
}

func seedTender(t *testing.T, s *Service) *Tender {
	t.Helper()
	tender, err := s.CreateTender("Road resurfacing", "Resurface 12km of road", "infrastructure",
		"gov-1", 150000, time.Now().Add(30*24*time.Hour))
	require.NoError(t, err)
	return tender
}

func proposalText() string {
	return "Our team has extensive experience with road projects. The methodology covers " +
		"planning, implementation, testing and documentation, with security and performance " +
		"monitoring throughout." + strings.Repeat(" more detail", 15)
}

func TestCreateTenderAnchorsLedger(t *testing.T) {
	s, repo := newTestService(t)
	tender := seedTender(t, s)

	assert.Equal(t, TenderStatusOpen, tender.Status)
	assert.NotEmpty(t, tender.CreationHash)

	stored, err := repo.GetTender(tender.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, tender.CreationHash, stored.CreationHash)

	trail, err := s.Ledger().VerifyTrail(tender.ID)
	require.NoError(t, err)
	assert.True(t, trail.Valid)
	require.Len(t, trail.Entries, 1)
	assert.Equal(t, ledger.EventTenderCreated, trail.Entries[0].EventType)
}

func TestCreateTenderValidation(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.CreateTender("", "d", "c", "gov-1", 1000, time.Now().Add(time.Hour))
	require.Error(t, err)

	_, err = s.CreateTender("t", "d", "c", "gov-1", -5, time.Now().Add(time.Hour))
	require.Error(t, err)

	_, err = s.CreateTender("t", "d", "c", "gov-1", 1000, time.Now().Add(-time.Hour))
	require.Error(t, err)
}

func TestSubmitBidRoundsPriceAndHashes(t *testing.T) {
	s, repo := newTestService(t)
	tender := seedTender(t, s)
	vendor := seedVendor(t, repo, "acme")

	bid, err := s.SubmitBid(tender.ID, vendor.ID, proposalText(), 99999.999, 45)
	require.NoError(t, err)

	assert.Equal(t, 100000.0, bid.ProposedPrice)
	assert.NotEmpty(t, bid.SubmissionHash)

	stored, err := repo.GetBid(bid.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.AIScore)
}

func TestSubmitBidRejectsDuplicate(t *testing.T) {
	s, repo := newTestService(t)
	tender := seedTender(t, s)
	vendor := seedVendor(t, repo, "acme")

	_, err := s.SubmitBid(tender.ID, vendor.ID, proposalText(), 90000, 45)
	require.NoError(t, err)

	_, err = s.SubmitBid(tender.ID, vendor.ID, proposalText(), 85000, 30)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConflict, errors.ToAppError(err).Category)
}

func TestSubmitBidRejectsClosedTender(t *testing.T) {
	s, repo := newTestService(t)
	tender := seedTender(t, s)
	vendor := seedVendor(t, repo, "acme")

	_, err := s.CloseTender(tender.ID)
	require.NoError(t, err)

	_, err = s.SubmitBid(tender.ID, vendor.ID, proposalText(), 90000, 45)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConflict, errors.ToAppError(err).Category)
}

func TestEvaluateTenderPersistsScores(t *testing.T) {
	s, repo := newTestService(t)
	tender := seedTender(t, s)

	for i, name := range []string{"alpha", "beta", "gamma"} {
		vendor := seedVendor(t, repo, name)
		_, err := s.SubmitBid(tender.ID, vendor.ID, proposalText(), 90000+float64(i)*10000, 30+i*15)
		require.NoError(t, err)
	}

	recs, _, err := s.EvaluateTender(context.Background(), tender.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	bids, err := repo.ListBidsByTender(tender.ID)
	require.NoError(t, err)
	for _, b := range bids {
		require.NotNil(t, b.AIScore, "bid %s should carry persisted scores", b.ID)
		assert.GreaterOrEqual(t, *b.AIScore, 0.0)
		assert.LessOrEqual(t, *b.AIScore, 100.0)
	}

	// recomputation overwrites, never appends
	again, _, err := s.EvaluateTender(context.Background(), tender.ID)
	require.NoError(t, err)
	assert.Equal(t, recs, again)
}

func TestEvaluateTenderEmptyBidSet(t *testing.T) {
	s, _ := newTestService(t)
	tender := seedTender(t, s)

	recs, _, err := s.EvaluateTender(context.Background(), tender.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAwardTenderFlow(t *testing.T) {
	s, repo := newTestService(t)
	tender := seedTender(t, s)
	vendor := seedVendor(t, repo, "acme")

	bid, err := s.SubmitBid(tender.ID, vendor.ID, proposalText(), 90000, 45)
	require.NoError(t, err)

	award, err := s.AwardTender(tender.ID, bid.ID, "best overall value")
	require.NoError(t, err)
	assert.Equal(t, bid.ProposedPrice, award.AwardAmount)
	assert.NotEmpty(t, award.DecisionHash)

	stored, err := repo.GetTender(tender.ID)
	require.NoError(t, err)
	assert.Equal(t, TenderStatusAwarded, stored.Status)

	winner, err := repo.GetVendor(vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.TotalWins)

	// double award is rejected
	_, err = s.AwardTender(tender.ID, bid.ID, "again")
	require.Error(t, err)

	trail, err := s.Ledger().VerifyTrail(tender.ID)
	require.NoError(t, err)
	assert.True(t, trail.Valid)
	assert.Len(t, trail.Entries, 3) // created, bid, award
}

func TestSubmitRatingUpdatesReputation(t *testing.T) {
	s, repo := newTestService(t)
	tender := seedTender(t, s)
	vendor := seedVendor(t, repo, "acme")

	bid, err := s.SubmitBid(tender.ID, vendor.ID, proposalText(), 90000, 45)
	require.NoError(t, err)
	award, err := s.AwardTender(tender.ID, bid.ID, "best value")
	require.NoError(t, err)

	_, err = s.SubmitRating(award.ID, "good work", "10.0.0.1", 5)
	require.NoError(t, err)
	_, err = s.SubmitRating(award.ID, "acceptable", "10.0.0.2", 4)
	require.NoError(t, err)

	storedAward, err := repo.GetAward(award.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, storedAward.PublicRating, 0.001)
	assert.Equal(t, 2, storedAward.RatingCount)

	updated, err := repo.GetVendor(vendor.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, updated.AverageRating, 0.001)
	assert.InDelta(t, 4.5, updated.ReputationScore, 0.001)
	assert.Equal(t, 1, updated.CompletedProjects)
}

func TestSubmitRatingValidation(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.SubmitRating("missing", "", "10.0.0.1", 6)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.ToAppError(err).Category)

	_, err = s.SubmitRating("missing", "", "10.0.0.1", 3)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotFound, errors.ToAppError(err).Category)
}
