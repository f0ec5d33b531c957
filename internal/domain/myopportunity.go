package domain

// MyOpportunityAction is what a participant did with an opportunity.
type MyOpportunityAction string

const (
	MyOpportunityActionViewed       MyOpportunityAction = "Viewed"
	MyOpportunityActionSaved        MyOpportunityAction = "Saved"
	MyOpportunityActionVerification MyOpportunityAction = "Verification"
)

// VerificationStatus is the review state of a verification action.
type VerificationStatus string

const (
	VerificationStatusPending   VerificationStatus = "Pending"
	VerificationStatusRejected  VerificationStatus = "Rejected"
	VerificationStatusCompleted VerificationStatus = "Completed"
)
