package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/session"
)

// EnquiryListSessionKey is the session key holding a visitor's enquiry list.
const EnquiryListSessionKey = "wcpe_enquiries"

var (
	// ErrItemNotFound is returned when removing an item the list does not contain.
	ErrItemNotFound = errors.New("enquiry item not found")
	// ErrQuantityOutOfRange is returned when a quantity is negative or the new total would overflow.
	ErrQuantityOutOfRange = errors.New("enquiry quantity out of range")
)

// IEnquiryListService manages the session-scoped enquiry list.
type IEnquiryListService interface {
	Get(ctx context.Context, sessionID string) (models.EnquiryList, error)
	Upsert(ctx context.Context, sessionID string, itemID, quantity int64) error
	Replace(ctx context.Context, sessionID string, list models.EnquiryList) error
	Remove(ctx context.Context, sessionID string, itemID int64) error
	Clear(ctx context.Context, sessionID string) error
}

type enquiryListService struct {
	store session.Store
}

// NewEnquiryListService creates a list service on top of a session store.
func NewEnquiryListService(store session.Store) IEnquiryListService {
	return &enquiryListService{store: store}
}

// Get returns the visitor's list, or an empty list if none was stored.
func (s *enquiryListService) Get(ctx context.Context, sessionID string) (models.EnquiryList, error) {
	list := models.EnquiryList{}
	found, err := s.store.Get(ctx, sessionID, EnquiryListSessionKey, &list)
	if err != nil {
		return nil, fmt.Errorf("failed to load enquiry list: %w", err)
	}
	if !found || list == nil {
		return models.EnquiryList{}, nil
	}
	return list, nil
}

// Upsert adds quantity to an existing line or creates a new one.
// Either way the line's remarks are reset. The stored list is unchanged on error.
func (s *enquiryListService) Upsert(ctx context.Context, sessionID string, itemID, quantity int64) error {
	if quantity < 0 {
		return ErrQuantityOutOfRange
	}
	list, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	line, exists := list[itemID]
	if exists && line.Quantity != 0 {
		if line.Quantity > math.MaxInt64-quantity {
			return fmt.Errorf("item %d: %w", itemID, ErrQuantityOutOfRange)
		}
		line.Quantity += quantity
	} else {
		line.Quantity = quantity
	}
	line.Remarks = ""
	list[itemID] = line
	return s.save(ctx, sessionID, list)
}

// Replace overwrites the whole list.
func (s *enquiryListService) Replace(ctx context.Context, sessionID string, list models.EnquiryList) error {
	if list == nil {
		list = models.EnquiryList{}
	}
	return s.save(ctx, sessionID, list)
}

// Remove drops one line. The list is left untouched when the item is absent.
func (s *enquiryListService) Remove(ctx context.Context, sessionID string, itemID int64) error {
	list, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, ok := list[itemID]; !ok {
		return ErrItemNotFound
	}
	delete(list, itemID)
	return s.save(ctx, sessionID, list)
}

func (s *enquiryListService) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Unset(ctx, sessionID, EnquiryListSessionKey); err != nil {
		return fmt.Errorf("failed to clear enquiry list: %w", err)
	}
	return nil
}

func (s *enquiryListService) save(ctx context.Context, sessionID string, list models.EnquiryList) error {
	if err := s.store.Set(ctx, sessionID, EnquiryListSessionKey, list); err != nil {
		return fmt.Errorf("failed to save enquiry list: %w", err)
	}
	return nil
}
