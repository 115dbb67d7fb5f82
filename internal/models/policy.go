package models

import "time"

type Policy struct {
	ID             string
	PolicyNumber   string
	Type           string
	CoverageAmount float64
	Cost           *float64
	StartDate      time.Time
	EndDate        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PolicySummary is the slice of a Policy joined into request, holding and claim listings.
type PolicySummary struct {
	ID             string
	PolicyNumber   string
	Type           string
	CoverageAmount float64
	Cost           *float64
}

func (p *Policy) Summary() PolicySummary {
	return PolicySummary{
		ID:             p.ID,
		PolicyNumber:   p.PolicyNumber,
		Type:           p.Type,
		CoverageAmount: p.CoverageAmount,
		Cost:           p.Cost,
	}
}

// UserSummary is the slice of a User joined into admin listings.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}
