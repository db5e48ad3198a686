package domain

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func testClients() []*Client {
	// root (organization)
	//  └── mid (business)
	//       └── leaf (individual)
	// solo (business, unrelated)
	return []*Client{
		{ID: "root", Name: "Root Org", Type: ClientTypeOrganization},
		{ID: "mid", Name: "Mid Business", Type: ClientTypeBusiness, ParentID: strPtr("root")},
		{ID: "leaf", Name: "Leaf Person", Type: ClientTypeIndividual, ParentID: strPtr("mid")},
		{ID: "solo", Name: "Solo", Type: ClientTypeBusiness},
	}
}

func TestDescendants(t *testing.T) {
	clients := testClients()

	descendants, err := Descendants(clients, "root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descendants) != 2 {
		t.Fatalf("expected 2 descendants of root, got %d", len(descendants))
	}
	if descendants[0].ID != "mid" || descendants[1].ID != "leaf" {
		t.Fatalf("expected [mid leaf], got [%s %s]", descendants[0].ID, descendants[1].ID)
	}

	descendants, err = Descendants(clients, "leaf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descendants) != 0 {
		t.Fatalf("expected no descendants of leaf, got %d", len(descendants))
	}
}

func TestDescendants_CycleDetected(t *testing.T) {
	clients := []*Client{
		{ID: "a", ParentID: strPtr("b")},
		{ID: "b", ParentID: strPtr("a")},
	}

	_, err := Descendants(clients, "a")
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	var consistency *ConsistencyError
	if !errors.As(err, &consistency) {
		t.Fatalf("expected ConsistencyError, got %T", err)
	}
}

func TestHierarchyPath(t *testing.T) {
	clients := testClients()

	path, err := HierarchyPath(clients, "leaf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 3 {
		t.Fatalf("expected path of 3, got %d", len(path))
	}
	if path[0].ID != "leaf" || path[1].ID != "mid" || path[2].ID != "root" {
		t.Fatalf("expected [leaf mid root], got [%s %s %s]", path[0].ID, path[1].ID, path[2].ID)
	}
}

func TestHierarchyPath_StopsAtMissingParent(t *testing.T) {
	clients := []*Client{
		{ID: "orphan", ParentID: strPtr("gone")},
	}

	path, err := HierarchyPath(clients, "orphan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 1 || path[0].ID != "orphan" {
		t.Fatalf("expected path to stop at orphan, got %d clients", len(path))
	}
}

func TestHierarchyPath_MissingClient(t *testing.T) {
	path, err := HierarchyPath(testClients(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 0 {
		t.Fatalf("expected empty path for missing client, got %d", len(path))
	}
}

func TestResolveOverride_NearestAncestorWins(t *testing.T) {
	clients := testClients()

	// Both the client and its grandparent override the same rate; the
	// client's own override must mask the ancestor's.
	clients[0].Overrides = []*RateOverride{
		{ID: "o-root", ClientID: "root", BaseRateID: "r1", Type: OverridePercentage, Value: 200},
	}
	clients[2].Overrides = []*RateOverride{
		{ID: "o-leaf", ClientID: "leaf", BaseRateID: "r1", Type: OverrideFixed, Value: 75},
	}

	override, err := ResolveOverride(clients, "leaf", "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if override == nil || override.ID != "o-leaf" {
		t.Fatalf("expected leaf's own override to win, got %+v", override)
	}

	// The middle client has no override of its own, so it inherits root's.
	override, err = ResolveOverride(clients, "mid", "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if override == nil || override.ID != "o-root" {
		t.Fatalf("expected inherited root override, got %+v", override)
	}
}

func TestResolveOverride_NoMatch(t *testing.T) {
	clients := testClients()

	override, err := ResolveOverride(clients, "solo", "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if override != nil {
		t.Fatalf("expected no override, got %+v", override)
	}

	// Empty client id means no override either.
	override, err = ResolveOverride(clients, "", "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if override != nil {
		t.Fatalf("expected no override for empty client id, got %+v", override)
	}
}

func TestEffectiveRate(t *testing.T) {
	rate := &BillingRate{ID: "r1", Name: "Standard", Rate: 100, Cost: 50}

	if got := EffectiveRate(rate, nil); got != 100 {
		t.Fatalf("expected base rate 100 without override, got %v", got)
	}

	fixed := &RateOverride{BaseRateID: "r1", Type: OverrideFixed, Value: 75}
	if got := EffectiveRate(rate, fixed); got != 75 {
		t.Fatalf("expected fixed override 75, got %v", got)
	}

	percentage := &RateOverride{BaseRateID: "r1", Type: OverridePercentage, Value: 50}
	if got := EffectiveRate(rate, percentage); got != 50 {
		t.Fatalf("expected 50%% of 100 = 50, got %v", got)
	}
}
