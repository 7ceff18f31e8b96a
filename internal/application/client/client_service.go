package client

import (
	"context"
	"strings"

	"github.com/estudiomd/backoffice/internal/application/sanitize"
	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientService handles client registry operations
type ClientService struct {
	repo   client.ClientRepository
	events shared.EventPublisher
	logger *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(repo client.ClientRepository, events shared.EventPublisher, logger *zap.Logger) *ClientService {
	return &ClientService{repo: repo, events: events, logger: logger}
}

// Create registers a client
func (s *ClientService) Create(ctx context.Context, req CreateClientRequest) (*ClientResponse, error) {
	if err := s.ensureEmailFree(ctx, req.Email, uuid.Nil); err != nil {
		return nil, err
	}

	c, err := client.NewClient(client.Details{
		Name:        sanitize.Text(req.Name),
		DNI:         req.DNI,
		CompanyName: sanitize.Text(req.CompanyName),
		CompanyRUC:  req.CompanyRUC,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     sanitize.Text(req.Address),
		City:        sanitize.Text(req.City),
		State:       sanitize.Text(req.State),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, c)

	s.logger.Info("Client created", zap.String("client_id", c.ID.String()))
	resp := ToClientResponse(c)
	return &resp, nil
}

// GetByID retrieves a client
func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToClientResponse(c)
	return &resp, nil
}

// List returns one page of clients
func (s *ClientService) List(ctx context.Context, f ClientListFilter) (shared.Paginated[ClientResponse], error) {
	filter := shared.DefaultFilter()
	filter.Page = f.Page
	filter.PageSize = f.PageSize
	filter.Search = strings.TrimSpace(f.Search)
	filter.ApplyOrdering(f.Ordering)
	if f.City != "" {
		filter.Filters["city"] = f.City
	}
	if f.State != "" {
		filter.Filters["state"] = f.State
	}
	filter.Normalize()

	clients, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ClientResponse]{}, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[ClientResponse]{}, err
	}

	items := make([]ClientResponse, len(clients))
	for i := range clients {
		items[i] = ToClientResponse(&clients[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Update applies a partial update
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req UpdateClientRequest) (*ClientResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != nil && !strings.EqualFold(strings.TrimSpace(*req.Email), c.Email) {
		if err := s.ensureEmailFree(ctx, *req.Email, c.ID); err != nil {
			return nil, err
		}
	}

	if err := c.Update(client.Patch{
		Name:        sanitize.Ptr(req.Name),
		DNI:         req.DNI,
		CompanyName: sanitize.Ptr(req.CompanyName),
		CompanyRUC:  req.CompanyRUC,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     sanitize.Ptr(req.Address),
		City:        sanitize.Ptr(req.City),
		State:       sanitize.Ptr(req.State),
	}); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, c)

	resp := ToClientResponse(c)
	return &resp, nil
}

// Delete removes a client together with its fiscal records
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	c.MarkDeleted()
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, c)

	s.logger.Info("Client deleted", zap.String("client_id", id.String()))
	return nil
}

func (s *ClientService) ensureEmailFree(ctx context.Context, email string, exclude uuid.UUID) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), exclude)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewFieldError("email", "A client with this email already exists.").WithCode(shared.ErrAlreadyExists.Code)
	}
	return nil
}

func (s *ClientService) publish(ctx context.Context, c *client.Client) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, c.PullDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish client events", zap.String("client_id", c.ID.String()), zap.Error(err))
	}
}
