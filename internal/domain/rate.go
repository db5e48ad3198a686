package domain

import (
	"strings"
	"time"
)

// BillingRate is a named hourly rate with a client-facing price and an
// internal cost, both per hour. At most one rate is the default at a time.
type BillingRate struct {
	ID        string
	Name      string
	Rate      float64 // price per hour charged to the client
	Cost      float64 // internal cost per hour
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBillingRate creates a new billing rate
func NewBillingRate(name string, rate, cost float64) *BillingRate {
	now := time.Now()
	return &BillingRate{
		Name:      strings.TrimSpace(name),
		Rate:      rate,
		Cost:      cost,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate returns an error if the billing rate is invalid
func (r *BillingRate) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "rate name is required"}
	}
	if r.Rate < 0 {
		return &ValidationError{Field: "rate", Message: "rate cannot be negative"}
	}
	if r.Cost < 0 {
		return &ValidationError{Field: "cost", Message: "cost cannot be negative"}
	}
	return nil
}

// OverrideType selects how an override value adjusts a base rate.
type OverrideType string

const (
	OverridePercentage OverrideType = "percentage" // value is a percent of the base rate
	OverrideFixed      OverrideType = "fixed"      // value replaces the base rate
)

// RateOverride is a per-client adjustment to a billing rate. A client has at
// most one meaningful override per base rate.
type RateOverride struct {
	ID         string
	ClientID   string
	BaseRateID string
	Type       OverrideType
	Value      float64
}

// Validate returns an error if the override is invalid
func (o *RateOverride) Validate() error {
	if o.BaseRateID == "" {
		return &ValidationError{Field: "baseRateId", Message: "base rate is required"}
	}
	if o.Type != OverridePercentage && o.Type != OverrideFixed {
		return &ValidationError{Field: "overrideType", Message: "override type must be percentage or fixed"}
	}
	if o.Value < 0 {
		return &ValidationError{Field: "value", Message: "override value cannot be negative"}
	}
	return nil
}

// EffectiveRate resolves the hourly rate to charge for a billing rate under
// an optional override. A fixed override replaces the base rate outright; a
// percentage override scales it. No override means the base rate applies.
func EffectiveRate(rate *BillingRate, override *RateOverride) float64 {
	if override == nil {
		return rate.Rate
	}
	switch override.Type {
	case OverrideFixed:
		return override.Value
	case OverridePercentage:
		return rate.Rate * (override.Value / 100)
	default:
		return rate.Rate
	}
}
