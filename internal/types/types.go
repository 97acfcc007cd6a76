package types

import "time"

// RegisterVendorRequest is the vendor signup payload
type RegisterVendorRequest struct {
	CompanyName        string `json:"company_name" binding:"required"`
	Email              string `json:"email" binding:"required,email"`
	Password           string `json:"password" binding:"required"`
	RegistrationNumber string `json:"registration_number"`
}

// VendorLoginRequest is the vendor login payload
type VendorLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GovernmentLoginRequest is the government login payload
type GovernmentLoginRequest struct {
	Username   string `json:"username" binding:"required"`
	AccessCode string `json:"access_code" binding:"required"`
}

// CreateTenderRequest is the tender publication payload
type CreateTenderRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Budget      float64   `json:"budget" binding:"required"`
	Deadline    time.Time `json:"deadline" binding:"required"`
}

// SubmitBidRequest is the bid submission payload
type SubmitBidRequest struct {
	ProposedPrice     float64 `json:"proposed_price" binding:"required"`
	TechnicalProposal string  `json:"technical_proposal" binding:"required"`
	DeliveryDays      int     `json:"delivery_days" binding:"required"`
}

// AwardTenderRequest is the award decision payload
type AwardTenderRequest struct {
	BidID         string `json:"bid_id" binding:"required"`
	Justification string `json:"justification"`
}

// SubmitRatingRequest is the public rating payload
type SubmitRatingRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// TokenResponse carries a session token and the authenticated principal
type TokenResponse struct {
	Token string      `json:"token"`
	Role  string      `json:"role"`
	Name  string      `json:"name"`
	ID    string      `json:"id"`
	Extra interface{} `json:"account,omitempty"`
}
