package models

// Analytics is the admin dashboard snapshot.
type Analytics struct {
	UsersByRole         map[string]int
	TotalPolicies       int
	RequestsByStatus    map[string]int
	ClaimsByStatus      map[string]int
	ApprovedClaimAmount float64
}

// ProfileInsights is read back from the customer-data platform rather than
// the ledger, so it reflects what has been synced so far.
type ProfileInsights struct {
	HoldingsByType map[string]int
	ActiveProfiles []ProfileActivity
}

// ProfileActivity counts the facts recorded against one identity profile.
type ProfileActivity struct {
	UserID string
	Email  string
	Facts  int
}
