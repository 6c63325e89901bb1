package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tealeg/xlsx"

	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/storage"
)

const (
	exportSheetName   = "Enquiries"
	exportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportDateLayout  = "2006-01-02 15:04:05"
)

// ErrNothingToExport is returned when the requested range holds no enquiries.
var ErrNothingToExport = errors.New("no enquiries in range")

var exportHeaders = []string{
	"ID", "Date", "Title", "First name", "Last name", "Email", "Phone", "Comment", "Items",
}

// ExportResult describes an uploaded workbook.
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IExportService turns stored enquiries into downloadable spreadsheets.
type IExportService interface {
	Export(ctx context.Context, from, to time.Time) (*ExportResult, error)
}

type exportService struct {
	enquiries IEnquiryService
	catalog   ICatalogService
	storage   storage.IS3Storage
	urlTTL    time.Duration
}

func NewExportService(enquiries IEnquiryService, catalog ICatalogService, store storage.IS3Storage, urlTTL time.Duration) IExportService {
	return &exportService{enquiries: enquiries, catalog: catalog, storage: store, urlTTL: urlTTL}
}

// Export uploads an xlsx of enquiries created in [from, to) and returns a presigned link to it.
func (s *exportService) Export(ctx context.Context, from, to time.Time) (*ExportResult, error) {
	if s.storage == nil {
		return nil, storage.ErrStorageNotConfigured
	}
	records, err := s.enquiries.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNothingToExport
	}

	products, err := s.catalog.FindProducts(ctx, exportItemIDs(records))
	if err != nil {
		log.Printf("WARNING: Export continues without product names: %v", err)
		products = nil
	}

	data, err := BuildEnquiryWorkbook(records, products)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("enquiries-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	key, err := s.storage.UploadExport(ctx, name, exportContentType, data)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Key: key, URL: url, Count: len(records), ExpiresAt: time.Now().Add(s.urlTTL)}, nil
}

// BuildEnquiryWorkbook renders one row per enquiry. Items are listed one per line in the last column.
func BuildEnquiryWorkbook(records []models.EnquiryRecord, products map[int64]*models.Product) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create export sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		row.AddCell().SetInt64(rec.ID)
		row.AddCell().SetValue(rec.CreatedAt.UTC().Format(exportDateLayout))
		row.AddCell().SetValue(rec.Title)
		row.AddCell().SetValue(rec.Enquirer.FirstName)
		row.AddCell().SetValue(rec.Enquirer.LastName)
		row.AddCell().SetValue(rec.Enquirer.Email)
		row.AddCell().SetValue(rec.Enquirer.Phone)
		row.AddCell().SetValue(rec.Excerpt)
		row.AddCell().SetValue(exportItems(rec.Items, products))
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write export workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportItems(items []models.EnquiryItem, products map[int64]*models.Product) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		name := fmt.Sprintf("#%d", it.ItemID)
		if p, ok := products[it.ItemID]; ok {
			name = p.Name
		}
		line := fmt.Sprintf("%s x %d", name, it.Quantity)
		if it.Remarks != "" {
			line += " (" + it.Remarks + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func exportItemIDs(records []models.EnquiryRecord) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, rec := range records {
		for _, it := range rec.Items {
			if !seen[it.ItemID] {
				seen[it.ItemID] = true
				ids = append(ids, it.ItemID)
			}
		}
	}
	return ids
}
