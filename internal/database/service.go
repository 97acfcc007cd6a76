package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurechain/procurechain/internal/errors"
	"github.com/procurechain/procurechain/internal/ledger"
	"github.com/procurechain/procurechain/internal/scoring"
)

// Service provides the procurement business logic on top of the
// repository: tender lifecycle, bid intake, evaluation persistence,
// awards and public ratings. Every state change that matters for
// transparency also lands on the audit ledger.
type Service struct {
	repo   *Repository
	ledger *ledger.Ledger
	engine *scoring.Engine
}

// NewService creates the procurement service
func NewService(repo *Repository, l *ledger.Ledger, engine *scoring.Engine) *Service {
	return &Service{repo: repo, ledger: l, engine: engine}
}

// Repo exposes the underlying repository for read-only handlers
func (s *Service) Repo() *Repository { return s.repo }

// Ledger exposes the audit ledger for verification endpoints
func (s *Service) Ledger() *ledger.Ledger { return s.ledger }

// normalizePrice validates a currency amount and rounds it to cents.
func normalizePrice(price float64) (float64, error) {
	d := decimal.NewFromFloat(price)
	if d.LessThanOrEqual(decimal.Zero) {
		return 0, errors.NewValidationError("price must be positive")
	}
	return d.Round(2).InexactFloat64(), nil
}

// CreateTender publishes a new tender and anchors it on the ledger
func (s *Service) CreateTender(title, description, category, createdBy string, budget float64, deadline time.Time) (*Tender, error) {
	budget, err := normalizePrice(budget)
	if err != nil {
		return nil, errors.NewValidationError("budget must be positive")
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.NewValidationError("title is required")
	}
	if !deadline.After(time.Now()) {
		return nil, errors.NewValidationError("deadline must be in the future")
	}

	tender := NewTender(title, description, category, createdBy, budget, deadline)
	entry, err := s.ledger.Record(tender.ID, ledger.EventTenderCreated, map[string]interface{}{
		"tender_id": tender.ID,
		"title":     tender.Title,
		"budget":    tender.Budget,
		"deadline":  tender.Deadline.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	tender.CreationHash = entry.Hash

	if err := s.repo.CreateTender(tender); err != nil {
		return nil, err
	}
	return tender, nil
}

// CloseTender stops bid intake for an open tender
func (s *Service) CloseTender(tenderID string) (*Tender, error) {
	tender, err := s.repo.GetTender(tenderID)
	if err != nil {
		return nil, err
	}
	if tender == nil {
		return nil, errors.NewNotFoundError("tender", tenderID)
	}
	if tender.Status != TenderStatusOpen {
		return nil, errors.NewConflictError(fmt.Sprintf("tender is %s, only open tenders can be closed", tender.Status))
	}

	if err := s.repo.UpdateTenderStatus(tenderID, TenderStatusClosed); err != nil {
		return nil, err
	}
	if _, err := s.ledger.Record(tenderID, ledger.EventTenderClosed, map[string]interface{}{
		"tender_id": tenderID,
	}); err != nil {
		return nil, err
	}

	tender.Status = TenderStatusClosed
	return tender, nil
}

// SubmitBid validates and stores a vendor's bid, recording the
// submission hash on the ledger. One bid per vendor per tender.
func (s *Service) SubmitBid(tenderID, vendorID, proposal string, price float64, deliveryDays int) (*Bid, error) {
	price, err := normalizePrice(price)
	if err != nil {
		return nil, err
	}
	if deliveryDays <= 0 {
		return nil, errors.NewValidationError("delivery timeline must be positive")
	}
	if strings.TrimSpace(proposal) == "" {
		return nil, errors.NewValidationError("technical proposal is required")
	}

	tender, err := s.repo.GetTender(tenderID)
	if err != nil {
		return nil, err
	}
	if tender == nil {
		return nil, errors.NewNotFoundError("tender", tenderID)
	}
	if tender.Status != TenderStatusOpen {
		return nil, errors.NewConflictError("tender is not open for bids")
	}
	if time.Now().After(tender.Deadline) {
		return nil, errors.NewConflictError("tender deadline has passed")
	}

	exists, err := s.repo.VendorHasBid(tenderID, vendorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewConflictError("vendor has already bid on this tender")
	}

	bid := NewBid(tenderID, vendorID, proposal, price, deliveryDays)
	entry, err := s.ledger.Record(tenderID, ledger.EventBidSubmitted, map[string]interface{}{
		"bid_id":         bid.ID,
		"tender_id":      tenderID,
		"vendor_id":      vendorID,
		"proposed_price": bid.ProposedPrice,
		"delivery_days":  bid.DeliveryDays,
	})
	if err != nil {
		return nil, err
	}
	bid.SubmissionHash = entry.Hash

	if err := s.repo.CreateBid(bid); err != nil {
		return nil, err
	}
	return bid, nil
}

// EvaluateTender scores every bid for a tender, persists the derived
// fields back onto the bid rows and returns the ranked recommendations.
// Bids from unknown vendors are skipped by the engine; an empty bid set
// returns an empty list.
func (s *Service) EvaluateTender(ctx context.Context, tenderID string) ([]scoring.Recommendation, *Tender, error) {
	tender, err := s.repo.GetTender(tenderID)
	if err != nil {
		return nil, nil, err
	}
	if tender == nil {
		return nil, nil, errors.NewNotFoundError("tender", tenderID)
	}

	bids, err := s.repo.ListBidsByTender(tenderID)
	if err != nil {
		return nil, nil, err
	}
	vendors, err := s.repo.VendorsForTender(tenderID)
	if err != nil {
		return nil, nil, err
	}

	recs, err := s.engine.Recommendations(ctx,
		tenderSnapshot(tender), bidSnapshots(bids), vendorSnapshots(vendors))
	if err != nil {
		return nil, nil, err
	}

	for _, rec := range recs {
		err := s.repo.UpdateBidScores(rec.BidID, rec.AIScore, rec.PriceScore,
			rec.VendorScore, rec.TechnicalScore, rec.AnomalyFlag,
			strings.Join(rec.AnomalyReasons, "; "))
		if err != nil {
			// a persistence failure does not invalidate the computed list
			slog.Error("failed to persist bid scores", "bid_id", rec.BidID, "error", err)
		}
	}
	return recs, tender, nil
}

// AwardTender records the award decision for a tender, bumps the
// winning vendor's tally and anchors the decision on the ledger.
func (s *Service) AwardTender(tenderID, bidID, justification string) (*Award, error) {
	tender, err := s.repo.GetTender(tenderID)
	if err != nil {
		return nil, err
	}
	if tender == nil {
		return nil, errors.NewNotFoundError("tender", tenderID)
	}
	if tender.Status == TenderStatusAwarded {
		return nil, errors.NewConflictError("tender has already been awarded")
	}

	bid, err := s.repo.GetBid(bidID)
	if err != nil {
		return nil, err
	}
	if bid == nil || bid.TenderID != tenderID {
		return nil, errors.NewNotFoundError("bid", bidID)
	}

	award := NewAward(tenderID, bidID, bid.VendorID, justification, bid.ProposedPrice)
	entry, err := s.ledger.Record(tenderID, ledger.EventAwardDecided, map[string]interface{}{
		"award_id":     award.ID,
		"tender_id":    tenderID,
		"bid_id":       bidID,
		"vendor_id":    bid.VendorID,
		"award_amount": award.AwardAmount,
	})
	if err != nil {
		return nil, err
	}
	award.DecisionHash = entry.Hash

	if err := s.repo.CreateAward(award); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTenderStatus(tenderID, TenderStatusAwarded); err != nil {
		return nil, err
	}
	if err := s.repo.IncrementVendorWins(bid.VendorID); err != nil {
		return nil, err
	}
	return award, nil
}

// SubmitRating stores a public rating for an awarded project and
// recomputes both the award aggregate and the vendor's reputation.
func (s *Service) SubmitRating(awardID, comment, voterIP string, rating int) (*PublicRating, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.NewValidationError("rating must be between 1 and 5")
	}

	award, err := s.repo.GetAward(awardID)
	if err != nil {
		return nil, err
	}
	if award == nil {
		return nil, errors.NewNotFoundError("award", awardID)
	}

	entry := NewPublicRating(awardID, comment, voterIP, rating)
	if err := s.repo.CreateRating(entry); err != nil {
		return nil, err
	}

	avg, count, err := s.repo.RatingStatsForAward(awardID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAwardRating(awardID, avg, count); err != nil {
		return nil, err
	}

	vendorAvg, _, err := s.repo.RatingStatsForVendor(award.VendorID)
	if err != nil {
		return nil, err
	}
	completed, err := s.repo.CountRatedAwardsForVendor(award.VendorID)
	if err != nil {
		return nil, err
	}
	// the public voice is the reputation: rated projects count as
	// completed, and the reputation score tracks the average rating
	if err := s.repo.UpdateVendorReputation(award.VendorID, completed, vendorAvg, vendorAvg); err != nil {
		return nil, err
	}
	return entry, nil
}

// --- snapshot conversion for the scoring engine ---

func tenderSnapshot(t *Tender) scoring.Tender {
	return scoring.Tender{
		ID:       t.ID,
		Title:    t.Title,
		Budget:   t.Budget,
		Category: t.Category,
		Deadline: t.Deadline,
	}
}

func bidSnapshots(bids []Bid) []scoring.Bid {
	out := make([]scoring.Bid, len(bids))
	for i, b := range bids {
		out[i] = scoring.Bid{
			ID:                b.ID,
			TenderID:          b.TenderID,
			VendorID:          b.VendorID,
			ProposedPrice:     b.ProposedPrice,
			TechnicalProposal: b.TechnicalProposal,
			DeliveryDays:      b.DeliveryDays,
		}
	}
	return out
}

func vendorSnapshots(vendors map[string]Vendor) map[string]scoring.Vendor {
	out := make(map[string]scoring.Vendor, len(vendors))
	for id, v := range vendors {
		out[id] = scoring.Vendor{
			ID:                v.ID,
			CompanyName:       v.CompanyName,
			ReputationScore:   v.ReputationScore,
			AverageRating:     v.AverageRating,
			TotalWins:         v.TotalWins,
			CompletedProjects: v.CompletedProjects,
		}
	}
	return out
}
