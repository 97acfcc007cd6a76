package database

import (
	"time"

	"github.com/google/uuid"
)

// Tender lifecycle states.
const (
	TenderStatusDraft   = "draft"
	TenderStatusOpen    = "open"
	TenderStatusClosed  = "closed"
	TenderStatusAwarded = "awarded"
)

// Tender is a published procurement request.
type Tender struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Budget       float64   `json:"budget" db:"budget"`
	Category     string    `json:"category" db:"category"`
	Deadline     time.Time `json:"deadline" db:"deadline"`
	Status       string    `json:"status" db:"status"`
	CreatedBy    string    `json:"created_by" db:"created_by"`
	CreationHash string    `json:"creation_hash,omitempty" db:"creation_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Vendor is a registered supplier account with its track record.
type Vendor struct {
	ID                 string    `json:"id" db:"id"`
	CompanyName        string    `json:"company_name" db:"company_name"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	RegistrationNumber string    `json:"registration_number" db:"registration_number"`
	ReputationScore    float64   `json:"reputation_score" db:"reputation_score"`
	AverageRating      float64   `json:"average_rating" db:"average_rating"`
	TotalWins          int       `json:"total_wins" db:"total_wins"`
	CompletedProjects  int       `json:"completed_projects" db:"completed_projects"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Bid is a vendor's proposal against a tender. The score fields are
// derived by the evaluation engine and overwritten on every
// recomputation; nil means the bid has not been scored yet.
type Bid struct {
	ID                string    `json:"id" db:"id"`
	TenderID          string    `json:"tender_id" db:"tender_id"`
	VendorID          string    `json:"vendor_id" db:"vendor_id"`
	ProposedPrice     float64   `json:"proposed_price" db:"proposed_price"`
	TechnicalProposal string    `json:"technical_proposal" db:"technical_proposal"`
	DeliveryDays      int       `json:"delivery_days" db:"delivery_days"`
	AIScore           *float64  `json:"ai_score,omitempty" db:"ai_score"`
	PriceScore        *float64  `json:"price_score,omitempty" db:"price_score"`
	VendorScore       *float64  `json:"vendor_score,omitempty" db:"vendor_score"`
	TechnicalScore    *float64  `json:"technical_score,omitempty" db:"technical_score"`
	AnomalyFlag       bool      `json:"anomaly_flag" db:"anomaly_flag"`
	AnomalyReason     string    `json:"anomaly_reason,omitempty" db:"anomaly_reason"`
	SubmissionHash    string    `json:"submission_hash,omitempty" db:"submission_hash"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Award records the winning bid decision for a tender.
type Award struct {
	ID            string    `json:"id" db:"id"`
	TenderID      string    `json:"tender_id" db:"tender_id"`
	BidID         string    `json:"bid_id" db:"bid_id"`
	VendorID      string    `json:"vendor_id" db:"vendor_id"`
	AwardAmount   float64   `json:"award_amount" db:"award_amount"`
	Justification string    `json:"justification" db:"justification"`
	PublicRating  float64   `json:"public_rating" db:"public_rating"`
	RatingCount   int       `json:"rating_count" db:"rating_count"`
	DecisionHash  string    `json:"decision_hash,omitempty" db:"decision_hash"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PublicRating is a citizen's rating of an awarded project outcome.
type PublicRating struct {
	ID        string    `json:"id" db:"id"`
	AwardID   string    `json:"award_id" db:"award_id"`
	Rating    int       `json:"rating" db:"rating"` // 1-5
	Comment   string    `json:"comment,omitempty" db:"comment"`
	VoterIP   string    `json:"-" db:"voter_ip"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GovernmentAccount is an official account that logs in by access code.
type GovernmentAccount struct {
	ID             string    `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Department     string    `json:"department" db:"department"`
	AccessCodeHash string    `json:"-" db:"access_code_hash"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// NewTender creates a draft tender with a generated ID.
func NewTender(title, description, category, createdBy string, budget float64, deadline time.Time) *Tender {
	now := time.Now()
	return &Tender{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Budget:      budget,
		Category:    category,
		Deadline:    deadline,
		Status:      TenderStatusOpen,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewVendor creates a vendor account with the starting reputation every
// new supplier gets before any public rating exists.
func NewVendor(companyName, email, passwordHash, registrationNumber string) *Vendor {
	now := time.Now()
	return &Vendor{
		ID:                 uuid.New().String(),
		CompanyName:        companyName,
		Email:              email,
		PasswordHash:       passwordHash,
		RegistrationNumber: registrationNumber,
		ReputationScore:    3.0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// NewBid creates an unscored bid.
func NewBid(tenderID, vendorID, proposal string, price float64, deliveryDays int) *Bid {
	now := time.Now()
	return &Bid{
		ID:                uuid.New().String(),
		TenderID:          tenderID,
		VendorID:          vendorID,
		ProposedPrice:     price,
		TechnicalProposal: proposal,
		DeliveryDays:      deliveryDays,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NewAward creates an award record for a winning bid.
func NewAward(tenderID, bidID, vendorID, justification string, amount float64) *Award {
	return &Award{
		ID:            uuid.New().String(),
		TenderID:      tenderID,
		BidID:         bidID,
		VendorID:      vendorID,
		AwardAmount:   amount,
		Justification: justification,
		CreatedAt:     time.Now(),
	}
}

// NewPublicRating creates a rating entry for an award.
func NewPublicRating(awardID, comment, voterIP string, rating int) *PublicRating {
	return &PublicRating{
		ID:        uuid.New().String(),
		AwardID:   awardID,
		Rating:    rating,
		Comment:   comment,
		VoterIP:   voterIP,
		CreatedAt: time.Now(),
	}
}

// NewGovernmentAccount creates a government account.
func NewGovernmentAccount(username, department, accessCodeHash string) *GovernmentAccount {
	return &GovernmentAccount{
		ID:             uuid.New().String(),
		Username:       username,
		Department:     department,
		AccessCodeHash: accessCodeHash,
		CreatedAt:      time.Now(),
	}
}
