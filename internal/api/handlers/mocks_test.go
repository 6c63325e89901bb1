package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"greendrake/productenquiry/internal/cart"
	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/services"
)

// --- Mocks ---

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Submit(ctx context.Context, req services.SubmissionRequest) (*services.SubmissionResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*services.SubmissionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCartClient struct {
	mock.Mock
}

func (m *MockCartClient) AddItems(ctx context.Context, sessionID string, items []cart.Item) error {
	return m.Called(ctx, sessionID, items).Error(0)
}

func (m *MockCartClient) MiniCart(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

type MockEnquiryService struct {
	mock.Mock
}

func (m *MockEnquiryService) Create(ctx context.Context, rec *models.EnquiryRecord) (*models.EnquiryRecord, error) {
	args := m.Called(ctx, rec)
	if r := args.Get(0); r != nil {
		return r.(*models.EnquiryRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEnquiryService) SetTitle(ctx context.Context, id int64, title string) error {
	return m.Called(ctx, id, title).Error(0)
}

func (m *MockEnquiryService) FindByID(ctx context.Context, id int64) (*models.EnquiryRecord, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*models.EnquiryRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEnquiryService) List(ctx context.Context, page, perPage int) ([]models.EnquiryRecord, int64, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]models.EnquiryRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockEnquiryService) ListBetween(ctx context.Context, from, to time.Time) ([]models.EnquiryRecord, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]models.EnquiryRecord), args.Error(1)
}

func (m *MockEnquiryService) Stats(ctx context.Context, now time.Time, topN int) (*models.EnquiryStats, error) {
	args := m.Called(ctx, now, topN)
	if r := args.Get(0); r != nil {
		return r.(*models.EnquiryStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEnquiryService) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, from, to time.Time) (*services.ExportResult, error) {
	args := m.Called(ctx, from, to)
	if r := args.Get(0); r != nil {
		return r.(*services.ExportResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- Stubs ---

// stubCatalog serves a fixed product set. err, when set, fails every lookup.
type stubCatalog struct {
	products map[int64]*models.Product
	err      error
}

func (s stubCatalog) FindProduct(_ context.Context, id int64) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, services.ErrProductNotFound
}

func (s stubCatalog) FindProducts(_ context.Context, ids []int64) (map[int64]*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64]*models.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// enabledSettings are the install defaults with enquiries switched on.
func enabledSettings() models.Settings {
	s := models.DefaultSettings()
	s.Enabled = true
	return s
}

// settingsStore keeps settings in memory.
type settingsStore struct {
	settings models.Settings
	saveErr  error
}

func (s *settingsStore) GetSettings(context.Context) models.Settings {
	return s.settings
}

func (s *settingsStore) SaveSettings(_ context.Context, settings models.Settings) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.settings = settings
	return nil
}
