package operational

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/estudiomd/backoffice/internal/application/sanitize"
	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPDFSize caps uploaded declaration documents
const MaxPDFSize = 10 << 20

// DocumentStorage stores filing PDFs
type DocumentStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	DownloadURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ClientReader loads clients
type ClientReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error)
}

// Actor is the authenticated user filing declarations
type Actor struct {
	UserID uuid.UUID
}

// OperationalService manages the tax filing calendar of clients
type OperationalService struct {
	repo    operational.OperationalControlRepository
	clients ClientReader
	storage DocumentStorage
	events  shared.EventPublisher
	logger  *zap.Logger
}

// NewOperationalService creates a new OperationalService
func NewOperationalService(
	repo operational.OperationalControlRepository,
	clients ClientReader,
	storage DocumentStorage,
	events shared.EventPublisher,
	logger *zap.Logger,
) *OperationalService {
	return &OperationalService{repo: repo, clients: clients, storage: storage, events: events, logger: logger}
}

// GetOrCreate returns the operational control of a year, opening it on first access
func (s *OperationalService) GetOrCreate(ctx context.Context, clientID uuid.UUID, year int) (*OperationalResponse, error) {
	c, err := s.getOrCreate(ctx, clientID, year)
	if err != nil {
		return nil, err
	}
	resp := toOperationalResponse(c, s.linker(ctx))
	return &resp, nil
}

// SetPresentationDate upserts the presentation date of a month
func (s *OperationalService) SetPresentationDate(ctx context.Context, clientID uuid.UUID, req PresentationDateRequest) (*OperationalResponse, error) {
	month, err := valueobject.NewMonth(req.Month)
	if err != nil {
		return nil, shared.NewFieldError("month", "El mes es requerido")
	}
	c, err := s.getOrCreate(ctx, clientID, req.Year)
	if err != nil {
		return nil, err
	}
	if _, err := c.SetPresentationDate(month, req.PresentationDate.TimePtr()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := toOperationalResponse(c, s.linker(ctx))
	return &resp, nil
}

// FileTaxDeclaration files a PDT against a monthly declaration, storing the
// optional PDF first
func (s *OperationalService) FileTaxDeclaration(ctx context.Context, actor Actor, clientID, declarationID uuid.UUID, req FileTaxRequest, pdf *Upload) (*TaxDeclarationResponse, error) {
	c, err := s.repo.FindByDeclaration(ctx, clientID, declarationID)
	if err != nil {
		return nil, err
	}

	in := operational.TaxInput{
		PDTType:     operational.PDTType(req.PDTType),
		OrderNumber: sanitize.Text(req.OrderNumber),
		Status:      operational.DeclarationStatus(req.Status),
		Notes:       sanitize.Text(req.Notes),
	}
	key, err := s.upload(ctx, "declarations", c, pdf)
	if err != nil {
		return nil, err
	}
	in.PDFKey = key

	td, err := c.FileTaxDeclaration(declarationID, in, actor.UserID)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	s.publish(ctx, c)

	s.logger.Info("Tax declaration filed",
		zap.String("client_id", clientID.String()),
		zap.Int("year", c.Year),
		zap.String("pdt_type", string(td.PDTType)),
		zap.Bool("with_pdf", key != ""))
	resp := toTaxDeclarationResponse(td, s.linker(ctx))
	return &resp, nil
}

// UpdateTaxDeclaration applies a partial update. A new PDF replaces the old one.
func (s *OperationalService) UpdateTaxDeclaration(ctx context.Context, clientID, declarationID, taxID uuid.UUID, req UpdateTaxRequest, pdf *Upload) (*TaxDeclarationResponse, error) {
	c, err := s.repo.FindByDeclaration(ctx, clientID, declarationID)
	if err != nil {
		return nil, err
	}
	current, err := c.TaxDeclaration(declarationID, taxID)
	if err != nil {
		return nil, err
	}
	oldKey := current.PDFKey

	patch := operational.TaxPatch{
		OrderNumber: sanitize.Ptr(req.OrderNumber),
		Notes:       sanitize.Ptr(req.Notes),
	}
	if req.PDTType != nil {
		t := operational.PDTType(*req.PDTType)
		patch.PDTType = &t
	}
	if req.Status != nil {
		st := operational.DeclarationStatus(*req.Status)
		patch.Status = &st
	}
	key, err := s.upload(ctx, "declarations", c, pdf)
	if err != nil {
		return nil, err
	}
	if key != "" {
		patch.PDFKey = &key
	}

	td, err := c.UpdateTaxDeclaration(declarationID, taxID, patch)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if key != "" {
		s.discard(ctx, oldKey)
	}

	resp := toTaxDeclarationResponse(td, s.linker(ctx))
	return &resp, nil
}

// DeleteTaxDeclaration removes a filing and its PDF
func (s *OperationalService) DeleteTaxDeclaration(ctx context.Context, clientID, declarationID, taxID uuid.UUID) error {
	c, err := s.repo.FindByDeclaration(ctx, clientID, declarationID)
	if err != nil {
		return err
	}
	td, err := c.RemoveTaxDeclaration(declarationID, taxID)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return err
	}
	s.discard(ctx, td.PDFKey)
	s.publish(ctx, c)
	return nil
}

// ListAdditionalPDTs returns the additional PDTs of a year. A year without
// operational control has none.
func (s *OperationalService) ListAdditionalPDTs(ctx context.Context, clientID uuid.UUID, year int) ([]AdditionalPDTResponse, error) {
	c, err := s.repo.FindByClientAndYear(ctx, clientID, year)
	if errors.Is(err, shared.ErrNotFound) {
		return []AdditionalPDTResponse{}, nil
	}
	if err != nil {
		return nil, err
	}
	link := s.linker(ctx)
	out := make([]AdditionalPDTResponse, len(c.AdditionalPDTs))
	for i, a := range c.AdditionalPDTs {
		out[i] = toAdditionalPDTResponse(c.Year, a, link)
	}
	return out, nil
}

// CreateAdditionalPDT registers an additional PDT, opening the year if needed
func (s *OperationalService) CreateAdditionalPDT(ctx context.Context, actor Actor, clientID uuid.UUID, req AdditionalPDTRequest, pdf *Upload) (*AdditionalPDTResponse, error) {
	c, err := s.getOrCreate(ctx, clientID, req.Year)
	if err != nil {
		return nil, err
	}

	in := operational.AdditionalInput{
		PDTType:          operational.PDTType(req.PDTType),
		PDTName:          sanitize.Text(req.PDTName),
		OrderNumber:      sanitize.Text(req.OrderNumber),
		PresentationDate: req.PresentationDate.TimePtr(),
		Status:           operational.DeclarationStatus(req.Status),
		Notes:            sanitize.Text(req.Notes),
	}
	key, err := s.upload(ctx, "additional-pdts", c, pdf)
	if err != nil {
		return nil, err
	}
	in.PDFKey = key

	a, err := c.AddAdditionalPDT(in, actor.UserID)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		s.discard(ctx, key)
		return nil, err
	}

	resp := toAdditionalPDTResponse(c.Year, a, s.linker(ctx))
	return &resp, nil
}

// GetAdditionalPDT returns one additional PDT of a client
func (s *OperationalService) GetAdditionalPDT(ctx context.Context, clientID, id uuid.UUID) (*AdditionalPDTResponse, error) {
	c, err := s.repo.FindByAdditionalPDT(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	a, err := c.AdditionalPDT(id)
	if err != nil {
		return nil, err
	}
	resp := toAdditionalPDTResponse(c.Year, a, s.linker(ctx))
	return &resp, nil
}

// UpdateAdditionalPDT applies a partial update. A new PDF replaces the old one.
func (s *OperationalService) UpdateAdditionalPDT(ctx context.Context, clientID, id uuid.UUID, req UpdateAdditionalPDTRequest, pdf *Upload) (*AdditionalPDTResponse, error) {
	c, err := s.repo.FindByAdditionalPDT(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	current, err := c.AdditionalPDT(id)
	if err != nil {
		return nil, err
	}
	oldKey := current.PDFKey

	patch := operational.AdditionalPatch{
		PDTName:          sanitize.Ptr(req.PDTName),
		OrderNumber:      sanitize.Ptr(req.OrderNumber),
		PresentationDate: req.PresentationDate.TimePtr(),
		Notes:            sanitize.Ptr(req.Notes),
	}
	if req.PDTType != nil {
		t := operational.PDTType(*req.PDTType)
		patch.PDTType = &t
	}
	if req.Status != nil {
		st := operational.DeclarationStatus(*req.Status)
		patch.Status = &st
	}
	key, err := s.upload(ctx, "additional-pdts", c, pdf)
	if err != nil {
		return nil, err
	}
	if key != "" {
		patch.PDFKey = &key
	}

	a, err := c.UpdateAdditionalPDT(id, patch)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if key != "" {
		s.discard(ctx, oldKey)
	}

	resp := toAdditionalPDTResponse(c.Year, a, s.linker(ctx))
	return &resp, nil
}

// DeleteAdditionalPDT removes an additional PDT and its PDF
func (s *OperationalService) DeleteAdditionalPDT(ctx context.Context, clientID, id uuid.UUID) error {
	c, err := s.repo.FindByAdditionalPDT(ctx, clientID, id)
	if err != nil {
		return err
	}
	a, err := c.RemoveAdditionalPDT(id)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return err
	}
	s.discard(ctx, a.PDFKey)
	return nil
}

func (s *OperationalService) getOrCreate(ctx context.Context, clientID uuid.UUID, year int) (*operational.OperationalControl, error) {
	if err := valueobject.ValidateFiscalYear(year); err != nil {
		return nil, err
	}
	if _, err := s.clients.FindByID(ctx, clientID); err != nil {
		return nil, err
	}

	c, err := s.repo.FindByClientAndYear(ctx, clientID, year)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	c, err = operational.NewOperationalControl(clientID, year)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.repo.FindByClientAndYear(ctx, clientID, year)
		}
		return nil, err
	}
	s.logger.Info("Operational control opened",
		zap.String("client_id", clientID.String()),
		zap.Int("year", year))
	s.publish(ctx, c)
	return c, nil
}

// upload stores pdf under prefix/{client}/{year}/{uuid}.pdf and returns the
// key, or "" when there is nothing to store
func (s *OperationalService) upload(ctx context.Context, prefix string, c *operational.OperationalControl, pdf *Upload) (string, error) {
	if pdf == nil {
		return "", nil
	}
	if err := validatePDF(pdf); err != nil {
		return "", err
	}
	key := path.Join(prefix, c.ClientID.String(), fmt.Sprint(c.Year), uuid.NewString()+".pdf")
	if err := s.storage.Put(ctx, key, pdf.Body, pdf.Size, "application/pdf"); err != nil {
		return "", fmt.Errorf("storing %s: %w", pdf.Filename, err)
	}
	return key, nil
}

// discard deletes a stored document; failures only leave an orphan object
func (s *OperationalService) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete document", zap.String("key", key), zap.Error(err))
	}
}

func (s *OperationalService) linker(ctx context.Context) linker {
	return func(key string) *string {
		if key == "" {
			return nil
		}
		u, err := s.storage.DownloadURL(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to sign document link", zap.String("key", key), zap.Error(err))
			return nil
		}
		return &u
	}
}

func (s *OperationalService) publish(ctx context.Context, c *operational.OperationalControl) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, c.PullDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish operational events", zap.String("control_id", c.ID.String()), zap.Error(err))
	}
}

func validatePDF(pdf *Upload) error {
	if pdf.Size > MaxPDFSize {
		return shared.NewFieldError("pdf_file", fmt.Sprintf("El archivo no debe superar %d MB.", MaxPDFSize>>20))
	}
	ct := strings.ToLower(pdf.ContentType)
	if !strings.HasSuffix(strings.ToLower(pdf.Filename), ".pdf") && !strings.HasPrefix(ct, "application/pdf") {
		return shared.NewFieldError("pdf_file", "Solo se permiten archivos PDF.")
	}
	return nil
}
