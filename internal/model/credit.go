package model

import (
	"time"

	"github.com/google/uuid"
)

// CreditStatus enumerates makeup credit redemption states.
type CreditStatus string

const (
	CreditStatusAvailable CreditStatus = "AVAILABLE"
	CreditStatusUsed      CreditStatus = "USED"
)

// MakeupCredit is a compensating entitlement to one additional session,
// created when a session is missed or cancelled (or granted manually, in
// which case OriginalSessionID is nil). Credits transition AVAILABLE to USED
// exactly once and are never deleted.
type MakeupCredit struct {
	ID                uuid.UUID    `json:"id"`
	StudentID         int          `json:"student_id"`
	OriginalSessionID *uuid.UUID   `json:"original_session_id,omitempty"`
	Reason            string       `json:"reason,omitempty"`
	Status            CreditStatus `json:"status"`
	CreditDate        time.Time    `json:"credit_date"`
	UsedDate          *time.Time   `json:"used_date,omitempty"`
}

// GrantCreditRequest is the payload for manually granting a makeup credit.
type GrantCreditRequest struct {
	StudentID int    `json:"student_id" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"required,min=2,max=500"`
}
