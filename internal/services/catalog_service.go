package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"greendrake/productenquiry/internal/models"
)

const (
	productsCollection = "products"
	usersCollection    = "users"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
)

// ICatalogService reads the storefront catalog and accounts. It never writes.
type ICatalogService interface {
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
	FindProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	FindUserByID(ctx context.Context, userID string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ProductAuthorEmail(ctx context.Context, itemID int64) (string, error)
}

type catalogService struct {
	db *mongo.Database
}

// NewCatalogService creates a catalog reader over the products and users collections.
func NewCatalogService(db *mongo.Database) ICatalogService {
	return &catalogService{db: db}
}

func (s *catalogService) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := s.db.Collection(productsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product %d: %w", id, err)
	}
	return &p, nil
}

// FindProducts returns the products that exist among ids. Missing IDs are simply absent from the map.
func (s *catalogService) FindProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := s.db.Collection(productsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var p models.Product
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		out[p.ID] = &p
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products cursor: %w", err)
	}
	return out, nil
}

func (s *catalogService) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": userID})
}

func (s *catalogService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *catalogService) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

// ProductAuthorEmail resolves the email of the account that owns an item.
func (s *catalogService) ProductAuthorEmail(ctx context.Context, itemID int64) (string, error) {
	p, err := s.FindProduct(ctx, itemID)
	if err != nil {
		return "", err
	}
	if p.AuthorID == "" {
		return "", ErrUserNotFound
	}
	u, err := s.FindUserByID(ctx, p.AuthorID)
	if err != nil {
		return "", err
	}
	if u.Email == "" {
		return "", ErrUserNotFound
	}
	return u.Email, nil
}
