package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mshaw/timevault/internal/domain"
)

func TestClientService_EffectiveRate(t *testing.T) {
	ctx := context.Background()
	clients, rates, _, _, _ := testFixture()
	svc := NewClientService(clients, rates)

	cases := []struct {
		name     string
		clientID string
		want     float64
	}{
		{"own fixed override", "client-a", 80},
		{"inherited override", "client-b", 80},
		{"percentage override", "client-c", 50},
		{"no override falls back", "client-d", 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.EffectiveRate(ctx, tc.clientID, "rate-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClientService_CreateRejectsIndividualParent(t *testing.T) {
	ctx := context.Background()
	clients, rates, _, _, _ := testFixture()
	svc := NewClientService(clients, rates)

	child := domain.NewClient("New Sub", domain.ClientTypeBusiness)
	child.ParentID = sp("client-b") // client-b is an individual

	err := svc.Create(ctx, child)
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestClientService_UpdateRejectsDescendantParent(t *testing.T) {
	ctx := context.Background()
	clients, rates, _, _, _ := testFixture()
	svc := NewClientService(clients, rates)

	// moving client-a under its own child client-b would close a cycle
	clientA, _ := clients.GetByID(ctx, "client-a")
	clientA.ParentID = sp("client-b")

	err := svc.Update(ctx, clientA)
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestClientService_SubtreeAndPath(t *testing.T) {
	ctx := context.Background()
	clients, rates, _, _, _ := testFixture()
	svc := NewClientService(clients, rates)

	subtree, err := svc.Subtree(ctx, "client-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subtree) != 2 || subtree[0].ID != "client-a" || subtree[1].ID != "client-b" {
		t.Errorf("unexpected subtree: %v", subtree)
	}

	path, err := svc.Path(ctx, "client-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 2 || path[0].ID != "client-b" || path[1].ID != "client-a" {
		t.Errorf("unexpected path: %v", path)
	}

	if _, err := svc.Subtree(ctx, "missing"); err == nil {
		t.Errorf("expected error for missing client")
	}
}
