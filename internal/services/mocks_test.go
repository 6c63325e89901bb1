package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"greendrake/productenquiry/internal/models"
)

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

type MockNotificationQueue struct {
	mock.Mock
}

func (m *MockNotificationQueue) EnqueueEnquiryNotification(ctx context.Context, n EnquiryNotification) error {
	return m.Called(ctx, n).Error(0)
}

type staticSettings models.Settings

func (s staticSettings) GetSettings(context.Context) models.Settings {
	return models.Settings(s)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogService) FindProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*models.Product), args.Error(1)
}

func (m *MockCatalogService) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockCatalogService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockCatalogService) ProductAuthorEmail(ctx context.Context, itemID int64) (string, error) {
	args := m.Called(ctx, itemID)
	return args.String(0), args.Error(1)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) UploadExport(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, filename, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}
