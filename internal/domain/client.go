package domain

import (
	"strings"
	"time"
)

// ClientType categorizes a client. The set has drifted over time, so it is
// deliberately an open string type; the only rule the application enforces is
// that individuals cannot have sub-clients.
type ClientType string

const (
	ClientTypeBusiness     ClientType = "business"
	ClientTypeContainer    ClientType = "container"
	ClientTypeIndividual   ClientType = "individual"
	ClientTypeOrganization ClientType = "organization"
)

// CanHaveChildren reports whether clients of this type may act as a parent in
// the hierarchy.
func (t ClientType) CanHaveChildren() bool {
	return t != ClientTypeIndividual
}

type Client struct {
	ID       string
	Name     string
	Type     ClientType
	ParentID *string // nil for root clients
	Email    string
	Notes    string

	// Rate is the legacy flat hourly rate, superseded by billing rates and
	// per-client overrides. Kept for display and for callers that predate
	// the billing rate table.
	Rate float64

	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Overrides are this client's billing rate overrides (populated by the
	// repository).
	Overrides []*RateOverride
}

// NewClient creates a new client with required fields
func NewClient(name string, clientType ClientType) *Client {
	now := time.Now()
	return &Client{
		Name:      strings.TrimSpace(name),
		Type:      clientType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OverrideFor returns this client's own override for the given base rate, or
// nil. It does not consult ancestors; use ResolveOverride for that.
func (c *Client) OverrideFor(baseRateID string) *RateOverride {
	for _, o := range c.Overrides {
		if o.BaseRateID == baseRateID {
			return o
		}
	}
	return nil
}

// Validate returns an error if the client is invalid
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Message: "client name is required"}
	}
	if c.Type == "" {
		return &ValidationError{Field: "type", Message: "client type is required"}
	}
	if c.Rate < 0 {
		return &ValidationError{Field: "rate", Message: "hourly rate cannot be negative"}
	}
	if c.ParentID != nil && c.ID != "" && *c.ParentID == c.ID {
		return &ValidationError{Field: "parentId", Message: "client cannot be its own parent"}
	}
	return nil
}
