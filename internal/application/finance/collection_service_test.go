package finance

import (
	"context"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/domain/finance"
	"github.com/estudiomd/backoffice/internal/domain/shared"
	"github.com/estudiomd/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCollectionRecordRepository struct {
	mock.Mock
}

func (m *MockCollectionRecordRepository) FindByID(ctx context.Context, clientID, id uuid.UUID) (*finance.CollectionRecord, error) {
	args := m.Called(ctx, clientID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.CollectionRecord), args.Error(1)
}

func (m *MockCollectionRecordRepository) FindAll(ctx context.Context, filter finance.CollectionFilter) ([]finance.CollectionRecord, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]finance.CollectionRecord), args.Error(1)
}

func (m *MockCollectionRecordRepository) Count(ctx context.Context, filter finance.CollectionFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCollectionRecordRepository) Save(ctx context.Context, r *finance.CollectionRecord) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockCollectionRecordRepository) Delete(ctx context.Context, clientID, id uuid.UUID) error {
	return m.Called(ctx, clientID, id).Error(0)
}

func newCollectionService(t *testing.T) (*CollectionService, *MockCollectionRecordRepository, uuid.UUID) {
	t.Helper()
	fx := newFinanceFixture(t)
	repo := new(MockCollectionRecordRepository)
	return NewCollectionService(repo, fx.clients, zap.NewNop()), repo, fx.client.ID
}

func day(y int, m time.Month, d int) *valueobject.Date {
	v := valueobject.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &v
}

func TestCollectionService_Create(t *testing.T) {
	ctx := context.Background()
	actor := Actor{UserID: uuid.New()}

	t.Run("defaults to pending", func(t *testing.T) {
		svc, repo, clientID := newCollectionService(t)
		repo.On("Save", ctx, mock.AnythingOfType("*finance.CollectionRecord")).Return(nil)

		resp, err := svc.Create(ctx, actor, clientID, CollectionRequest{
			ContactDate:     day(2024, 6, 10),
			ContactMethod:   "whatsapp",
			Notes:           "Promete pagar <i>el viernes</i>",
			NextContactDate: day(2024, 6, 14),
		})

		require.NoError(t, err)
		assert.Equal(t, "pending", resp.Status)
		assert.Equal(t, "Promete pagar el viernes", resp.Notes)
		assert.Equal(t, actor.UserID, resp.CreatedBy)
		assert.Equal(t, "2024-06-14", resp.NextContactDate.String())
	})

	t.Run("next contact before contact date", func(t *testing.T) {
		svc, repo, clientID := newCollectionService(t)

		_, err := svc.Create(ctx, actor, clientID, CollectionRequest{
			ContactDate:     day(2024, 6, 10),
			ContactMethod:   "phone",
			NextContactDate: day(2024, 6, 9),
		})

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "next_contact_date")
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCollectionService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo, clientID := newCollectionService(t)
	rec, err := finance.NewCollectionRecord(clientID, uuid.New(), finance.CollectionInput{
		ContactDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		ContactMethod: finance.ContactPhone,
		Notes:         "Sin respuesta",
	})
	require.NoError(t, err)
	repo.On("FindByID", ctx, clientID, rec.ID).Return(rec, nil)
	repo.On("Save", ctx, rec).Return(nil)

	status := "promised"
	resp, err := svc.Update(ctx, clientID, rec.ID, UpdateCollectionRequest{Status: &status})

	require.NoError(t, err)
	assert.Equal(t, "promised", resp.Status)
	assert.Equal(t, "phone", resp.ContactMethod)
	assert.Equal(t, "Sin respuesta", resp.Notes)
}

func TestCollectionService_List(t *testing.T) {
	ctx := context.Background()
	svc, repo, clientID := newCollectionService(t)

	match := mock.MatchedBy(func(f finance.CollectionFilter) bool {
		return f.ClientID == clientID && f.Status == finance.CollectionPending &&
			f.OrderBy == "contact_date" && f.OrderDir == "desc"
	})
	repo.On("FindAll", ctx, match).Return([]finance.CollectionRecord{}, nil)
	repo.On("Count", ctx, match).Return(int64(0), nil)

	page, err := svc.List(ctx, clientID, CollectionListFilter{Status: "pending"})

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNext())
}

func TestCollectionService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo, clientID := newCollectionService(t)
	id := uuid.New()
	repo.On("Delete", ctx, clientID, id).Return(shared.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, clientID, id), shared.ErrNotFound)
}
