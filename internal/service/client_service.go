package service

import (
	"context"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/repository"
)

// ClientService manages the client hierarchy and per-client rate overrides.
// All reparenting goes through here so the tree stays acyclic and
// individuals never acquire children.
type ClientService interface {
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	Get(ctx context.Context, id string) (*domain.Client, error)
	GetByName(ctx context.Context, name string) (*domain.Client, error)
	List(ctx context.Context, includeArchived bool) ([]*domain.Client, error)
	Archive(ctx context.Context, id string) error
	Unarchive(ctx context.Context, id string) error

	// Subtree returns the client followed by all of its descendants.
	Subtree(ctx context.Context, clientID string) ([]*domain.Client, error)

	// Path returns the chain from the client up to its root ancestor,
	// most specific first.
	Path(ctx context.Context, clientID string) ([]*domain.Client, error)

	// SetOverrides replaces the client's full set of rate overrides.
	SetOverrides(ctx context.Context, clientID string, overrides []*domain.RateOverride) error

	// EffectiveRate resolves the hourly rate the client pays for a billing
	// rate, honoring the nearest override up the hierarchy.
	EffectiveRate(ctx context.Context, clientID, baseRateID string) (float64, error)
}

type clientService struct {
	clientRepo repository.ClientRepository
	rateRepo   repository.BillingRateRepository
}

// NewClientService creates a new client service
func NewClientService(clientRepo repository.ClientRepository, rateRepo repository.BillingRateRepository) ClientService {
	return &clientService{clientRepo: clientRepo, rateRepo: rateRepo}
}

func (s *clientService) Create(ctx context.Context, client *domain.Client) error {
	if err := s.checkParent(ctx, client, nil); err != nil {
		return err
	}
	return s.clientRepo.Create(ctx, client)
}

func (s *clientService) Update(ctx context.Context, client *domain.Client) error {
	clients, err := s.clientRepo.List(ctx, true)
	if err != nil {
		return err
	}
	if err := s.checkParent(ctx, client, clients); err != nil {
		return err
	}
	return s.clientRepo.Update(ctx, client)
}

// checkParent validates a client's parent link: the parent must exist and
// be a type that can have children, and for an existing client the parent
// must not sit inside the client's own subtree.
func (s *clientService) checkParent(ctx context.Context, client *domain.Client, clients []*domain.Client) error {
	if client.ParentID == nil {
		return nil
	}
	if *client.ParentID == client.ID {
		return &domain.ValidationError{Field: "parentId", Message: "client cannot be its own parent"}
	}

	parent, err := s.clientRepo.GetByID(ctx, *client.ParentID)
	if err != nil {
		return err
	}
	if !parent.Type.CanHaveChildren() {
		return &domain.ValidationError{Field: "parentId", Message: "clients of type " + string(parent.Type) + " cannot have children"}
	}

	if clients != nil && client.ID != "" {
		descendants, err := domain.Descendants(clients, client.ID)
		if err != nil {
			return err
		}
		for _, d := range descendants {
			if d.ID == *client.ParentID {
				return &domain.ValidationError{Field: "parentId", Message: "cannot move a client under its own descendant"}
			}
		}
	}
	return nil
}

func (s *clientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	return s.clientRepo.GetByID(ctx, id)
}

func (s *clientService) GetByName(ctx context.Context, name string) (*domain.Client, error) {
	return s.clientRepo.GetByName(ctx, name)
}

func (s *clientService) List(ctx context.Context, includeArchived bool) ([]*domain.Client, error) {
	return s.clientRepo.List(ctx, includeArchived)
}

func (s *clientService) Archive(ctx context.Context, id string) error {
	return s.clientRepo.Archive(ctx, id)
}

func (s *clientService) Unarchive(ctx context.Context, id string) error {
	return s.clientRepo.Unarchive(ctx, id)
}

func (s *clientService) Subtree(ctx context.Context, clientID string) ([]*domain.Client, error) {
	clients, err := s.clientRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	subtree, err := domain.Subtree(clients, clientID)
	if err != nil {
		return nil, err
	}
	if subtree == nil {
		return nil, &domain.NotFoundError{Resource: "client", ID: clientID}
	}
	return subtree, nil
}

func (s *clientService) Path(ctx context.Context, clientID string) ([]*domain.Client, error) {
	clients, err := s.clientRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	path, err := domain.HierarchyPath(clients, clientID)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, &domain.NotFoundError{Resource: "client", ID: clientID}
	}
	return path, nil
}

func (s *clientService) SetOverrides(ctx context.Context, clientID string, overrides []*domain.RateOverride) error {
	if _, err := s.clientRepo.GetByID(ctx, clientID); err != nil {
		return err
	}
	for _, o := range overrides {
		if _, err := s.rateRepo.GetByID(ctx, o.BaseRateID); err != nil {
			return err
		}
	}
	return s.clientRepo.ReplaceOverrides(ctx, clientID, overrides)
}

func (s *clientService) EffectiveRate(ctx context.Context, clientID, baseRateID string) (float64, error) {
	base, err := s.rateRepo.GetByID(ctx, baseRateID)
	if err != nil {
		return 0, err
	}

	clients, err := s.clientRepo.List(ctx, true)
	if err != nil {
		return 0, err
	}

	override, err := domain.ResolveOverride(clients, clientID, baseRateID)
	if err != nil {
		return 0, err
	}
	return domain.EffectiveRate(base, override), nil
}
