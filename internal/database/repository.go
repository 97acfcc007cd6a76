package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/procurechain/procurechain/internal/ledger"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// --- tenders ---

// CreateTender persists a new tender
func (r *Repository) CreateTender(t *Tender) error {
	_, err := r.db.Exec(`
		INSERT INTO tenders (id, title, description, budget, category, deadline, status, created_by, creation_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, t.Budget, t.Category, t.Deadline, t.Status, t.CreatedBy, t.CreationHash, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tender: %w", err)
	}
	return nil
}

// GetTender loads one tender; returns nil when it does not exist
func (r *Repository) GetTender(id string) (*Tender, error) {
	var t Tender
	err := r.db.QueryRow(`
		SELECT id, title, description, budget, category, deadline, status, created_by, creation_hash, created_at, updated_at
		FROM tenders WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &t.Description, &t.Budget, &t.Category, &t.Deadline,
		&t.Status, &t.CreatedBy, &t.CreationHash, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tender: %w", err)
	}
	return &t, nil
}

// ListTenders returns tenders, optionally filtered by status
func (r *Repository) ListTenders(status string) ([]Tender, error) {
	query := `SELECT id, title, description, budget, category, deadline, status, created_by, creation_hash, created_at, updated_at
		FROM tenders ORDER BY created_at DESC`
	args := []interface{}{}
	if status != "" {
		query = `SELECT id, title, description, budget, category, deadline, status, created_by, creation_hash, created_at, updated_at
			FROM tenders WHERE status = ? ORDER BY created_at DESC`
		args = append(args, status)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenders: %w", err)
	}
	defer rows.Close()

	var tenders []Tender
	for rows.Next() {
		var t Tender
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Budget, &t.Category, &t.Deadline,
			&t.Status, &t.CreatedBy, &t.CreationHash, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tender: %w", err)
		}
		tenders = append(tenders, t)
	}
	return tenders, rows.Err()
}

// UpdateTenderStatus moves a tender through its lifecycle
func (r *Repository) UpdateTenderStatus(id, status string) error {
	res, err := r.db.Exec(`UPDATE tenders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update tender status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tender %s not found", id)
	}
	return nil
}

// SetTenderCreationHash stores the ledger hash recorded at creation
func (r *Repository) SetTenderCreationHash(id, hash string) error {
	_, err := r.db.Exec(`UPDATE tenders SET creation_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set tender creation hash: %w", err)
	}
	return nil
}

// --- vendors ---

// CreateVendor persists a new vendor account
func (r *Repository) CreateVendor(v *Vendor) error {
	_, err := r.db.Exec(`
		INSERT INTO vendors (id, company_name, email, password_hash, registration_number,
			reputation_score, average_rating, total_wins, completed_projects, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.CompanyName, v.Email, v.PasswordHash, v.RegistrationNumber,
		v.ReputationScore, v.AverageRating, v.TotalWins, v.CompletedProjects, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

func scanVendor(row interface{ Scan(...interface{}) error }) (*Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.CompanyName, &v.Email, &v.PasswordHash, &v.RegistrationNumber,
		&v.ReputationScore, &v.AverageRating, &v.TotalWins, &v.CompletedProjects,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVendor loads one vendor; returns nil when it does not exist
func (r *Repository) GetVendor(id string) (*Vendor, error) {
	stmt, err := r.db.GetPreparedStatement("get_vendor")
	if err != nil {
		return nil, err
	}

	v, err := scanVendor(stmt.QueryRow(id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return v, nil
}

// GetVendorByEmail loads a vendor by login email; nil when absent
func (r *Repository) GetVendorByEmail(email string) (*Vendor, error) {
	v, err := scanVendor(r.db.QueryRow(`
		SELECT id, company_name, email, password_hash, registration_number,
			reputation_score, average_rating, total_wins, completed_projects, created_at, updated_at
		FROM vendors WHERE email = ?
	`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor by email: %w", err)
	}
	return v, nil
}

// VendorsForTender loads every vendor that has bid on a tender, keyed by ID
func (r *Repository) VendorsForTender(tenderID string) (map[string]Vendor, error) {
	rows, err := r.db.Query(`
		SELECT v.id, v.company_name, v.email, v.password_hash, v.registration_number,
			v.reputation_score, v.average_rating, v.total_wins, v.completed_projects, v.created_at, v.updated_at
		FROM vendors v JOIN bids b ON b.vendor_id = v.id
		WHERE b.tender_id = ?
	`, tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendors for tender: %w", err)
	}
	defer rows.Close()

	vendors := make(map[string]Vendor)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors[v.ID] = *v
	}
	return vendors, rows.Err()
}

// IncrementVendorWins bumps the win counter after an award decision
func (r *Repository) IncrementVendorWins(vendorID string) error {
	_, err := r.db.Exec(`UPDATE vendors SET total_wins = total_wins + 1, updated_at = ? WHERE id = ?`,
		time.Now(), vendorID)
	if err != nil {
		return fmt.Errorf("failed to increment vendor wins: %w", err)
	}
	return nil
}

// UpdateVendorReputation overwrites the rating-derived reputation fields
func (r *Repository) UpdateVendorReputation(vendorID string, completedProjects int, averageRating, reputationScore float64) error {
	_, err := r.db.Exec(`
		UPDATE vendors SET completed_projects = ?, average_rating = ?, reputation_score = ?, updated_at = ?
		WHERE id = ?
	`, completedProjects, averageRating, reputationScore, time.Now(), vendorID)
	if err != nil {
		return fmt.Errorf("failed to update vendor reputation: %w", err)
	}
	return nil
}

// --- bids ---

// CreateBid persists a new bid
func (r *Repository) CreateBid(b *Bid) error {
	stmt, err := r.db.GetPreparedStatement("insert_bid")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(b.ID, b.TenderID, b.VendorID, b.ProposedPrice, b.TechnicalProposal,
		b.DeliveryDays, b.AnomalyFlag, b.AnomalyReason, b.SubmissionHash, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}
	return nil
}

func scanBid(row interface{ Scan(...interface{}) error }) (*Bid, error) {
	var b Bid
	var ai, price, vendor, technical sql.NullFloat64
	var reason, hash sql.NullString

	err := row.Scan(&b.ID, &b.TenderID, &b.VendorID, &b.ProposedPrice, &b.TechnicalProposal,
		&b.DeliveryDays, &ai, &price, &vendor, &technical,
		&b.AnomalyFlag, &reason, &hash, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if ai.Valid {
		b.AIScore = &ai.Float64
	}
	if price.Valid {
		b.PriceScore = &price.Float64
	}
	if vendor.Valid {
		b.VendorScore = &vendor.Float64
	}
	if technical.Valid {
		b.TechnicalScore = &technical.Float64
	}
	b.AnomalyReason = reason.String
	b.SubmissionHash = hash.String
	return &b, nil
}

// GetBid loads one bid; returns nil when it does not exist
func (r *Repository) GetBid(id string) (*Bid, error) {
	b, err := scanBid(r.db.QueryRow(`
		SELECT id, tender_id, vendor_id, proposed_price, technical_proposal, delivery_days,
			ai_score, price_score, vendor_score, technical_score,
			anomaly_flag, anomaly_reason, submission_hash, created_at, updated_at
		FROM bids WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return b, nil
}

// ListBidsByTender returns every bid for one tender in submission order
func (r *Repository) ListBidsByTender(tenderID string) ([]Bid, error) {
	stmt, err := r.db.GetPreparedStatement("get_bids_by_tender")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

// ListBidsByVendor returns a vendor's own bids, newest first
func (r *Repository) ListBidsByVendor(vendorID string) ([]Bid, error) {
	rows, err := r.db.Query(`
		SELECT id, tender_id, vendor_id, proposed_price, technical_proposal, delivery_days,
			ai_score, price_score, vendor_score, technical_score,
			anomaly_flag, anomaly_reason, submission_hash, created_at, updated_at
		FROM bids WHERE vendor_id = ? ORDER BY created_at DESC
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendor bids: %w", err)
	}
	defer rows.Close()

	var bids []Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

// VendorHasBid reports whether a vendor already bid on a tender
func (r *Repository) VendorHasBid(tenderID, vendorID string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM bids WHERE tender_id = ? AND vendor_id = ?`,
		tenderID, vendorID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check existing bid: %w", err)
	}
	return n > 0, nil
}

// UpdateBidScores overwrites the derived scoring fields on a bid. The
// write is idempotent; every recomputation replaces the previous values.
func (r *Repository) UpdateBidScores(bidID string, aiScore, priceScore, vendorScore, technicalScore float64, anomalyFlag bool, anomalyReason string) error {
	stmt, err := r.db.GetPreparedStatement("update_bid_scores")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(aiScore, priceScore, vendorScore, technicalScore,
		anomalyFlag, anomalyReason, time.Now(), bidID)
	if err != nil {
		return fmt.Errorf("failed to update bid scores: %w", err)
	}
	return nil
}

// --- awards ---

// CreateAward persists an award decision
func (r *Repository) CreateAward(a *Award) error {
	_, err := r.db.Exec(`
		INSERT INTO awards (id, tender_id, bid_id, vendor_id, award_amount, justification,
			public_rating, rating_count, decision_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TenderID, a.BidID, a.VendorID, a.AwardAmount, a.Justification,
		a.PublicRating, a.RatingCount, a.DecisionHash, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create award: %w", err)
	}
	return nil
}

func scanAward(row interface{ Scan(...interface{}) error }) (*Award, error) {
	var a Award
	var hash sql.NullString
	err := row.Scan(&a.ID, &a.TenderID, &a.BidID, &a.VendorID, &a.AwardAmount,
		&a.Justification, &a.PublicRating, &a.RatingCount, &hash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.DecisionHash = hash.String
	return &a, nil
}

// GetAwardByTender loads the award for a tender; nil when not awarded
func (r *Repository) GetAwardByTender(tenderID string) (*Award, error) {
	a, err := scanAward(r.db.QueryRow(`
		SELECT id, tender_id, bid_id, vendor_id, award_amount, justification,
			public_rating, rating_count, decision_hash, created_at
		FROM awards WHERE tender_id = ?
	`, tenderID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get award: %w", err)
	}
	return a, nil
}

// GetAward loads one award by ID; nil when absent
func (r *Repository) GetAward(id string) (*Award, error) {
	a, err := scanAward(r.db.QueryRow(`
		SELECT id, tender_id, bid_id, vendor_id, award_amount, justification,
			public_rating, rating_count, decision_hash, created_at
		FROM awards WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get award: %w", err)
	}
	return a, nil
}

// ListAwardsByVendor returns a vendor's awards, newest first
func (r *Repository) ListAwardsByVendor(vendorID string) ([]Award, error) {
	rows, err := r.db.Query(`
		SELECT id, tender_id, bid_id, vendor_id, award_amount, justification,
			public_rating, rating_count, decision_hash, created_at
		FROM awards WHERE vendor_id = ? ORDER BY created_at DESC
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendor awards: %w", err)
	}
	defer rows.Close()

	var awards []Award
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, *a)
	}
	return awards, rows.Err()
}

// UpdateAwardRating overwrites the public rating aggregate on an award
func (r *Repository) UpdateAwardRating(awardID string, publicRating float64, ratingCount int) error {
	_, err := r.db.Exec(`UPDATE awards SET public_rating = ?, rating_count = ? WHERE id = ?`,
		publicRating, ratingCount, awardID)
	if err != nil {
		return fmt.Errorf("failed to update award rating: %w", err)
	}
	return nil
}

// --- public ratings ---

// CreateRating persists one public rating
func (r *Repository) CreateRating(p *PublicRating) error {
	_, err := r.db.Exec(`
		INSERT INTO public_ratings (id, award_id, rating, comment, voter_ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.AwardID, p.Rating, p.Comment, p.VoterIP, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rating: %w", err)
	}
	return nil
}

// RatingStatsForAward returns the average and count over an award's ratings
func (r *Repository) RatingStatsForAward(awardID string) (float64, int, error) {
	var avg sql.NullFloat64
	var count int
	err := r.db.QueryRow(`SELECT AVG(rating), COUNT(*) FROM public_ratings WHERE award_id = ?`,
		awardID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate award ratings: %w", err)
	}
	return avg.Float64, count, nil
}

// RatingStatsForVendor aggregates every rating across a vendor's awards
func (r *Repository) RatingStatsForVendor(vendorID string) (float64, int, error) {
	var avg sql.NullFloat64
	var count int
	err := r.db.QueryRow(`
		SELECT AVG(p.rating), COUNT(*)
		FROM public_ratings p JOIN awards a ON a.id = p.award_id
		WHERE a.vendor_id = ?
	`, vendorID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate vendor ratings: %w", err)
	}
	return avg.Float64, count, nil
}

// CountRatedAwardsForVendor counts the vendor's awards that have at
// least one public rating, used as the completed-project tally.
func (r *Repository) CountRatedAwardsForVendor(vendorID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(DISTINCT a.id)
		FROM awards a JOIN public_ratings p ON p.award_id = a.id
		WHERE a.vendor_id = ?
	`, vendorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rated awards: %w", err)
	}
	return n, nil
}

// --- government accounts ---

// CreateGovernmentAccount persists a government account
func (r *Repository) CreateGovernmentAccount(g *GovernmentAccount) error {
	_, err := r.db.Exec(`
		INSERT INTO government_accounts (id, username, department, access_code_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, g.ID, g.Username, g.Department, g.AccessCodeHash, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create government account: %w", err)
	}
	return nil
}

// GetGovernmentAccountByUsername loads one account; nil when absent
func (r *Repository) GetGovernmentAccountByUsername(username string) (*GovernmentAccount, error) {
	var g GovernmentAccount
	err := r.db.QueryRow(`
		SELECT id, username, department, access_code_hash, created_at
		FROM government_accounts WHERE username = ?
	`, username).Scan(&g.ID, &g.Username, &g.Department, &g.AccessCodeHash, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get government account: %w", err)
	}
	return &g, nil
}

// GetGovernmentAccount loads one account by ID; nil when absent
func (r *Repository) GetGovernmentAccount(id string) (*GovernmentAccount, error) {
	var g GovernmentAccount
	err := r.db.QueryRow(`
		SELECT id, username, department, access_code_hash, created_at
		FROM government_accounts WHERE id = ?
	`, id).Scan(&g.ID, &g.Username, &g.Department, &g.AccessCodeHash, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get government account: %w", err)
	}
	return &g, nil
}

// --- ledger store ---

// AppendLedgerEntry implements ledger.Store
func (r *Repository) AppendLedgerEntry(e *ledger.Entry) error {
	stmt, err := r.db.GetPreparedStatement("insert_ledger_entry")
	if err != nil {
		return err
	}

	res, err := stmt.Exec(e.ID, e.TenderID, e.EventType, e.Payload,
		e.RecordHash, e.PrevHash, e.Hash, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		e.Seq = seq
	}
	return nil
}

// LastLedgerEntry implements ledger.Store; nil when the chain is empty
func (r *Repository) LastLedgerEntry() (*ledger.Entry, error) {
	var e ledger.Entry
	err := r.db.QueryRow(`
		SELECT seq, id, tender_id, event_type, payload, record_hash, prev_hash, hash, created_at
		FROM ledger_entries ORDER BY seq DESC LIMIT 1
	`).Scan(&e.Seq, &e.ID, &e.TenderID, &e.EventType, &e.Payload,
		&e.RecordHash, &e.PrevHash, &e.Hash, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger head: %w", err)
	}
	return &e, nil
}

// LedgerEntryBefore implements ledger.Store; nil when seq is the first
func (r *Repository) LedgerEntryBefore(seq int64) (*ledger.Entry, error) {
	var e ledger.Entry
	err := r.db.QueryRow(`
		SELECT seq, id, tender_id, event_type, payload, record_hash, prev_hash, hash, created_at
		FROM ledger_entries WHERE seq < ? ORDER BY seq DESC LIMIT 1
	`, seq).Scan(&e.Seq, &e.ID, &e.TenderID, &e.EventType, &e.Payload,
		&e.RecordHash, &e.PrevHash, &e.Hash, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger predecessor: %w", err)
	}
	return &e, nil
}

// LedgerEntriesByTender implements ledger.Store
func (r *Repository) LedgerEntriesByTender(tenderID string) ([]ledger.Entry, error) {
	rows, err := r.db.Query(`
		SELECT seq, id, tender_id, event_type, payload, record_hash, prev_hash, hash, created_at
		FROM ledger_entries WHERE tender_id = ? ORDER BY seq ASC
	`, tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.Seq, &e.ID, &e.TenderID, &e.EventType, &e.Payload,
			&e.RecordHash, &e.PrevHash, &e.Hash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
