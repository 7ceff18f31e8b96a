package operational

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/client"
	"github.com/estudiomd/backoffice/internal/domain/operational"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockOperationalControlRepository struct {
	mock.Mock
}

func (m *MockOperationalControlRepository) FindByClientAndYear(ctx context.Context, clientID uuid.UUID, year int) (*operational.OperationalControl, error) {
	args := m.Called(ctx, clientID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operational.OperationalControl), args.Error(1)
}

func (m *MockOperationalControlRepository) FindByDeclaration(ctx context.Context, clientID, declarationID uuid.UUID) (*operational.OperationalControl, error) {
	args := m.Called(ctx, clientID, declarationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operational.OperationalControl), args.Error(1)
}

func (m *MockOperationalControlRepository) FindByAdditionalPDT(ctx context.Context, clientID, pdtID uuid.UUID) (*operational.OperationalControl, error) {
	args := m.Called(ctx, clientID, pdtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operational.OperationalControl), args.Error(1)
}

func (m *MockOperationalControlRepository) Save(ctx context.Context, c *operational.OperationalControl) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockOperationalControlRepository) ListYears(ctx context.Context, clientID uuid.UUID) ([]int, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]int), args.Error(1)
}

type stubClients map[uuid.UUID]*client.Client

func (s stubClients) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

// fakeStorage records stored and deleted keys
type fakeStorage struct {
	objects map[string]string
	deleted []string
	failPut bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]string{}}
}

func (f *fakeStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if f.failPut {
		return errors.New("bucket unavailable")
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = string(b)
	return nil
}

func (f *fakeStorage) DownloadURL(ctx context.Context, key string) (string, error) {
	return "https://files.test/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

type opFixture struct {
	repo     *MockOperationalControlRepository
	storage  *fakeStorage
	pub      *recordingPublisher
	clientID uuid.UUID
	actor    Actor
	svc      *OperationalService
}

func newOpFixture(t *testing.T) *opFixture {
	t.Helper()
	c, err := client.NewClient(client.Details{Name: "Comercial Andina", Email: "conta@andina.pe"})
	require.NoError(t, err)

	fx := &opFixture{
		repo:     new(MockOperationalControlRepository),
		storage:  newFakeStorage(),
		pub:      &recordingPublisher{},
		clientID: c.ID,
		actor:    Actor{UserID: uuid.New()},
	}
	fx.svc = NewOperationalService(fx.repo, stubClients{c.ID: c}, fx.storage, fx.pub, zap.NewNop())
	return fx
}

func (fx *opFixture) control(t *testing.T) *operational.OperationalControl {
	t.Helper()
	c, err := operational.NewOperationalControl(fx.clientID, 2024)
	require.NoError(t, err)
	c.PullDomainEvents()
	return c
}

func pdf(name, body string) *Upload {
	return &Upload{Filename: name, ContentType: "application/pdf", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestOperationalService_GetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a missing year", func(t *testing.T) {
		fx := newOpFixture(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.clientID, 2024).Return(nil, shared.ErrNotFound)
		fx.repo.On("Save", ctx, mock.AnythingOfType("*operational.OperationalControl")).Return(nil)

		resp, err := fx.svc.GetOrCreate(ctx, fx.clientID, 2024)

		require.NoError(t, err)
		assert.Len(t, resp.MonthlyDeclarations, 13)
		assert.Equal(t, "DJ Anual", resp.MonthlyDeclarations[12].MonthName)
		assert.Equal(t, 13, resp.PendingDeclarations)
		require.Len(t, fx.pub.events, 1)
		assert.Equal(t, operational.EventTypeControlOpened, fx.pub.events[0].EventType())
	})

	t.Run("existing year publishes nothing", func(t *testing.T) {
		fx := newOpFixture(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.clientID, 2024).Return(fx.control(t), nil)

		_, err := fx.svc.GetOrCreate(ctx, fx.clientID, 2024)

		require.NoError(t, err)
		assert.Empty(t, fx.pub.events)
		fx.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("year out of range", func(t *testing.T) {
		fx := newOpFixture(t)

		_, err := fx.svc.GetOrCreate(ctx, fx.clientID, 1999)

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"Year must be between 2000 and 2100."}, verr.Fields["year"])
		fx.repo.AssertNotCalled(t, "FindByClientAndYear", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown client", func(t *testing.T) {
		fx := newOpFixture(t)
		_, err := fx.svc.GetOrCreate(ctx, uuid.New(), 2024)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestOperationalService_SetPresentationDate(t *testing.T) {
	ctx := context.Background()
	fx := newOpFixture(t)
	c := fx.control(t)
	fx.repo.On("FindByClientAndYear", ctx, fx.clientID, 2024).Return(c, nil)
	fx.repo.On("Save", ctx, c).Return(nil)

	date := valueobject.NewDate(time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC))
	resp, err := fx.svc.SetPresentationDate(ctx, fx.clientID, PresentationDateRequest{Year: 2024, Month: 3, PresentationDate: &date})

	require.NoError(t, err)
	require.NotNil(t, resp.MonthlyDeclarations[2].PresentationDate)
	assert.Equal(t, "2024-04-12", resp.MonthlyDeclarations[2].PresentationDate.String())

	_, err = fx.svc.SetPresentationDate(ctx, fx.clientID, PresentationDateRequest{Year: 2024, Month: 14})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "month")
}

func TestOperationalService_FileTaxDeclaration(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the pdf and publishes", func(t *testing.T) {
		fx := newOpFixture(t)
		c := fx.control(t)
		march := c.DeclarationByMonth(valueobject.March)
		fx.repo.On("FindByDeclaration", ctx, fx.clientID, march.ID).Return(c, nil)
		fx.repo.On("Save", ctx, c).Return(nil)

		resp, err := fx.svc.FileTaxDeclaration(ctx, fx.actor, fx.clientID, march.ID,
			FileTaxRequest{PDTType: "PDT_621", OrderNumber: "8700123"}, pdf("marzo.pdf", "%PDF-1.4"))

		require.NoError(t, err)
		assert.Equal(t, "PDT 621", resp.PDTTypeDisplay)
		assert.Equal(t, "Pendiente", resp.StatusDisplay)
		require.NotNil(t, resp.PDFFile)
		assert.Contains(t, *resp.PDFFile, "declarations/"+fx.clientID.String()+"/2024/")
		assert.Len(t, fx.storage.objects, 1)
		require.Len(t, fx.pub.events, 1)
		assert.Equal(t, operational.EventTypeTaxDeclarationFiled, fx.pub.events[0].EventType())
	})

	t.Run("invalid type discards the upload", func(t *testing.T) {
		fx := newOpFixture(t)
		c := fx.control(t)
		march := c.DeclarationByMonth(valueobject.March)
		fx.repo.On("FindByDeclaration", ctx, fx.clientID, march.ID).Return(c, nil)

		_, err := fx.svc.FileTaxDeclaration(ctx, fx.actor, fx.clientID, march.ID,
			FileTaxRequest{PDTType: "OTHER"}, pdf("x.pdf", "%PDF"))

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "pdt_type")
		assert.Empty(t, fx.storage.objects)
		assert.Len(t, fx.storage.deleted, 1)
		fx.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects non pdf uploads", func(t *testing.T) {
		fx := newOpFixture(t)
		c := fx.control(t)
		march := c.DeclarationByMonth(valueobject.March)
		fx.repo.On("FindByDeclaration", ctx, fx.clientID, march.ID).Return(c, nil)

		_, err := fx.svc.FileTaxDeclaration(ctx, fx.actor, fx.clientID, march.ID,
			FileTaxRequest{PDTType: "PDT_621"}, &Upload{Filename: "foto.png", ContentType: "image/png", Body: strings.NewReader("x")})

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "pdf_file")
	})
}

func TestOperationalService_UpdateAndDeleteTaxDeclaration(t *testing.T) {
	ctx := context.Background()
	fx := newOpFixture(t)
	c := fx.control(t)
	march := c.DeclarationByMonth(valueobject.March)
	td, err := c.FileTaxDeclaration(march.ID, operational.TaxInput{PDTType: operational.PDT621, PDFKey: "declarations/old.pdf"}, fx.actor.UserID)
	require.NoError(t, err)
	fx.storage.objects["declarations/old.pdf"] = "%PDF-old"
	fx.repo.On("FindByDeclaration", ctx, fx.clientID, march.ID).Return(c, nil)
	fx.repo.On("Save", ctx, c).Return(nil)

	status := "accepted"
	resp, err := fx.svc.UpdateTaxDeclaration(ctx, fx.clientID, march.ID, td.ID, UpdateTaxRequest{Status: &status}, pdf("new.pdf", "%PDF-new"))

	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, []string{"declarations/old.pdf"}, fx.storage.deleted)
	assert.Len(t, fx.storage.objects, 1)

	require.NoError(t, fx.svc.DeleteTaxDeclaration(ctx, fx.clientID, march.ID, td.ID))
	assert.Empty(t, fx.storage.objects)
	assert.Equal(t, 13, c.PendingDeclarations())
	require.NotEmpty(t, fx.pub.events)
	last := fx.pub.events[len(fx.pub.events)-1]
	assert.Equal(t, operational.EventTypeTaxDeclarationRemoved, last.EventType())

	assert.ErrorIs(t, fx.svc.DeleteTaxDeclaration(ctx, fx.clientID, march.ID, td.ID), shared.ErrNotFound)
}

func TestOperationalService_AdditionalPDTs(t *testing.T) {
	ctx := context.Background()

	t.Run("list without control is empty", func(t *testing.T) {
		fx := newOpFixture(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.clientID, 2023).Return(nil, shared.ErrNotFound)

		list, err := fx.svc.ListAdditionalPDTs(ctx, fx.clientID, 2023)

		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
		fx.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("crud", func(t *testing.T) {
		fx := newOpFixture(t)
		c := fx.control(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.clientID, 2024).Return(c, nil)
		fx.repo.On("Save", ctx, c).Return(nil)

		created, err := fx.svc.CreateAdditionalPDT(ctx, fx.actor, fx.clientID, AdditionalPDTRequest{
			Year:    2024,
			PDTType: "OTHER",
			PDTName: "Declaración ITF",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Declaración ITF", created.DisplayName)
		assert.Nil(t, created.PDFFile)

		fx.repo.On("FindByAdditionalPDT", ctx, fx.clientID, created.ID).Return(c, nil)

		name := ""
		_, err = fx.svc.UpdateAdditionalPDT(ctx, fx.clientID, created.ID, UpdateAdditionalPDTRequest{PDTName: &name}, nil)
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "pdt_name")

		pdtType := "PDT_617"
		updated, err := fx.svc.UpdateAdditionalPDT(ctx, fx.clientID, created.ID, UpdateAdditionalPDTRequest{PDTType: &pdtType}, nil)
		require.NoError(t, err)
		assert.Equal(t, "PDT 617", updated.DisplayName)

		list, err := fx.svc.ListAdditionalPDTs(ctx, fx.clientID, 2024)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, fx.svc.DeleteAdditionalPDT(ctx, fx.clientID, created.ID))
		assert.Empty(t, c.AdditionalPDTs)
	})

	t.Run("storage failure", func(t *testing.T) {
		fx := newOpFixture(t)
		fx.storage.failPut = true
		c := fx.control(t)
		fx.repo.On("FindByClientAndYear", ctx, fx.clientID, 2024).Return(c, nil)

		_, err := fx.svc.CreateAdditionalPDT(ctx, fx.actor, fx.clientID, AdditionalPDTRequest{Year: 2024, PDTType: "PDT_710"}, pdf("renta.pdf", "%PDF"))

		assert.Error(t, err)
		assert.Empty(t, c.AdditionalPDTs)
	})
}
