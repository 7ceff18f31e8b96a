package finance

import (
	"context"
	"strings"

	"github.com/estudiomd/backoffice/internal/application/sanitize"
	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollectionService logs follow-ups on unpaid balances
type CollectionService struct {
	repo    finance.CollectionRecordRepository
	clients ClientReader
	logger  *zap.Logger
}

// NewCollectionService creates a new CollectionService
func NewCollectionService(repo finance.CollectionRecordRepository, clients ClientReader, logger *zap.Logger) *CollectionService {
	return &CollectionService{repo: repo, clients: clients, logger: logger}
}

// List returns a page of a client's collection records
func (s *CollectionService) List(ctx context.Context, clientID uuid.UUID, f CollectionListFilter) (shared.Paginated[CollectionResponse], error) {
	if _, err := s.clients.FindByID(ctx, clientID); err != nil {
		return shared.Paginated[CollectionResponse]{}, err
	}

	filter := finance.CollectionFilter{
		Filter:   shared.DefaultFilter(),
		ClientID: clientID,
		Status:   finance.CollectionStatus(f.Status),
	}
	filter.OrderBy = "contact_date"
	filter.Page = f.Page
	filter.PageSize = f.PageSize
	filter.Search = strings.TrimSpace(f.Search)
	filter.ApplyOrdering(f.Ordering)
	filter.Normalize()

	records, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[CollectionResponse]{}, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[CollectionResponse]{}, err
	}

	items := make([]CollectionResponse, len(records))
	for i := range records {
		items[i] = ToCollectionResponse(&records[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Create logs a collection attempt
func (s *CollectionService) Create(ctx context.Context, actor Actor, clientID uuid.UUID, req CollectionRequest) (*CollectionResponse, error) {
	if _, err := s.clients.FindByID(ctx, clientID); err != nil {
		return nil, err
	}

	in := finance.CollectionInput{
		MonthlyPaymentID: req.MonthlyPaymentID,
		Status:           finance.CollectionStatus(req.Status),
		ContactMethod:    finance.ContactMethod(req.ContactMethod),
		Notes:            sanitize.Text(req.Notes),
		NextContactDate:  req.NextContactDate.TimePtr(),
	}
	if req.ContactDate != nil {
		in.ContactDate = req.ContactDate.Time
	}
	r, err := finance.NewCollectionRecord(clientID, actor.UserID, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("Collection record created",
		zap.String("client_id", clientID.String()),
		zap.String("record_id", r.ID.String()),
		zap.String("status", string(r.Status)))
	resp := ToCollectionResponse(r)
	return &resp, nil
}

// Update applies a partial update to a collection record
func (s *CollectionService) Update(ctx context.Context, clientID, id uuid.UUID, req UpdateCollectionRequest) (*CollectionResponse, error) {
	r, err := s.repo.FindByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}

	in := r.Input()
	if req.MonthlyPaymentID != nil {
		in.MonthlyPaymentID = req.MonthlyPaymentID
	}
	if req.Status != nil {
		in.Status = finance.CollectionStatus(*req.Status)
	}
	if req.ContactDate != nil {
		in.ContactDate = req.ContactDate.Time
	}
	if req.ContactMethod != nil {
		in.ContactMethod = finance.ContactMethod(*req.ContactMethod)
	}
	if req.Notes != nil {
		in.Notes = sanitize.Text(*req.Notes)
	}
	if req.NextContactDate != nil {
		in.NextContactDate = req.NextContactDate.TimePtr()
	}
	if err := r.Update(in); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, err
	}

	resp := ToCollectionResponse(r)
	return &resp, nil
}

// Delete removes a collection record
func (s *CollectionService) Delete(ctx context.Context, clientID, id uuid.UUID) error {
	return s.repo.Delete(ctx, clientID, id)
}
