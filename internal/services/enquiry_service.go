package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/productenquiry/internal/db"
	"greendrake/productenquiry/internal/models"
)

const (
	enquiriesCollection = "enquiries"
	enquirySequence     = "enquiries"
)

var ErrEnquiryNotFound = errors.New("enquiry not found")

// IEnquiryService stores submitted enquiries.
type IEnquiryService interface {
	Create(ctx context.Context, rec *models.EnquiryRecord) (*models.EnquiryRecord, error)
	// SetTitle renames a record without touching any other field.
	SetTitle(ctx context.Context, id int64, title string) error
	FindByID(ctx context.Context, id int64) (*models.EnquiryRecord, error)
	List(ctx context.Context, page, perPage int) ([]models.EnquiryRecord, int64, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.EnquiryRecord, error)
	Stats(ctx context.Context, now time.Time, topN int) (*models.EnquiryStats, error)
	EnsureIndexes(ctx context.Context) error
}

type enquiryService struct {
	db *mongo.Database
}

// NewEnquiryService creates a new EnquiryService.
func NewEnquiryService(database *mongo.Database) IEnquiryService {
	return &enquiryService{db: database}
}

func (s *enquiryService) collection() *mongo.Collection {
	return s.db.Collection(enquiriesCollection)
}

// Create assigns the next numeric ID and inserts rec. CreatedAt is set when zero.
func (s *enquiryService) Create(ctx context.Context, rec *models.EnquiryRecord) (*models.EnquiryRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Items == nil {
		rec.Items = []models.EnquiryItem{}
	}

	err := db.Try(func() error {
		id, err := db.NextSequence(ctx, s.db, enquirySequence)
		if err != nil {
			return err
		}
		rec.ID = id
		_, err = s.collection().InsertOne(ctx, rec)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert enquiry: %w", err)
	}
	return rec, nil
}

func (s *enquiryService) SetTitle(ctx context.Context, id int64, title string) error {
	res, err := s.collection().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"title": title}})
	if err != nil {
		return fmt.Errorf("failed to set title of enquiry %d: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrEnquiryNotFound
	}
	return nil
}

func (s *enquiryService) FindByID(ctx context.Context, id int64) (*models.EnquiryRecord, error) {
	var rec models.EnquiryRecord
	if err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrEnquiryNotFound
		}
		return nil, fmt.Errorf("failed to find enquiry %d: %w", id, err)
	}
	return &rec, nil
}

// List returns one page of enquiries, newest first, and the total count.
// page is 1-based; non-positive values are clamped.
func (s *enquiryService) List(ctx context.Context, page, perPage int) ([]models.EnquiryRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	total, err := s.collection().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count enquiries: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	records, err := s.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListBetween returns enquiries created in [from, to), oldest first. A zero bound is open.
func (s *enquiryService) ListBetween(ctx context.Context, from, to time.Time) ([]models.EnquiryRecord, error) {
	created := bson.M{}
	if !from.IsZero() {
		created["$gte"] = from
	}
	if !to.IsZero() {
		created["$lt"] = to
	}
	filter := bson.M{}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
}

func (s *enquiryService) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.EnquiryRecord, error) {
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query enquiries: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.EnquiryRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode enquiries: %w", err)
	}
	return records, nil
}

func (s *enquiryService) Stats(ctx context.Context, now time.Time, topN int) (*models.EnquiryStats, error) {
	stats := &models.EnquiryStats{TopProducts: []models.ProductEnquired{}}
	coll := s.collection()

	var err error
	if stats.Total, err = coll.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("failed to count enquiries: %w", err)
	}
	if stats.Last7Days, err = coll.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": now.AddDate(0, 0, -7)}}); err != nil {
		return nil, fmt.Errorf("failed to count recent enquiries: %w", err)
	}
	if stats.Last30Days, err = coll.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": now.AddDate(0, 0, -30)}}); err != nil {
		return nil, fmt.Errorf("failed to count recent enquiries: %w", err)
	}

	if topN <= 0 {
		return stats, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$items.item_id"},
			{Key: "quantity", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}},
			{Key: "enquiries", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "quantity", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: topN}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate enquired products: %w", err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &stats.TopProducts); err != nil {
		return nil, fmt.Errorf("failed to decode enquired products: %w", err)
	}
	return stats, nil
}

func (s *enquiryService) EnsureIndexes(ctx context.Context) error {
	return db.EnsureIndexes(ctx, s.collection(),
		mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "enquirer.email", Value: 1}}},
	)
}
