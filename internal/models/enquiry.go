package models

import (
	"sort"
	"time"
)

// EnquiryLine is one entry of a visitor's enquiry list.
type EnquiryLine struct {
	Quantity int64  `json:"quantity"`
	Remarks  string `json:"remarks"`
}

// EnquiryList maps a product or variation ID to its line.
type EnquiryList map[int64]EnquiryLine

// ItemIDs returns the list keys in ascending order.
func (l EnquiryList) ItemIDs() []int64 {
	ids := make([]int64, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone returns a copy that shares no state with l.
func (l EnquiryList) Clone() EnquiryList {
	out := make(EnquiryList, len(l))
	for id, line := range l {
		out[id] = line
	}
	return out
}

// Items flattens the list into storable items, ordered by item ID.
func (l EnquiryList) Items() []EnquiryItem {
	items := make([]EnquiryItem, 0, len(l))
	for _, id := range l.ItemIDs() {
		line := l[id]
		items = append(items, EnquiryItem{ItemID: id, Quantity: line.Quantity, Remarks: line.Remarks})
	}
	return items
}

// EnquiryItem is the persisted form of an EnquiryLine.
// BSON documents cannot use integer map keys, so records store a slice.
type EnquiryItem struct {
	ItemID   int64  `bson:"item_id" json:"item_id"`
	Quantity int64  `bson:"quantity" json:"quantity"`
	Remarks  string `bson:"remarks" json:"remarks"`
}

// ListFromItems rebuilds an EnquiryList from persisted items.
func ListFromItems(items []EnquiryItem) EnquiryList {
	list := make(EnquiryList, len(items))
	for _, it := range items {
		list[it.ItemID] = EnquiryLine{Quantity: it.Quantity, Remarks: it.Remarks}
	}
	return list
}

// Enquirer holds the contact details submitted with an enquiry.
type Enquirer struct {
	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone" json:"phone"`
}

// FullName joins first and last name the way record titles display them.
func (e Enquirer) FullName() string {
	return e.FirstName + " " + e.LastName
}

// EnquiryRecord is the durable result of a submitted enquiry list.
type EnquiryRecord struct {
	ID         int64         `bson:"_id" json:"id"`
	Title      string        `bson:"title" json:"title"`
	Excerpt    string        `bson:"excerpt" json:"comment"`                         // Free-text comment
	AuthorID   string        `bson:"author_id,omitempty" json:"author_id,omitempty"` // Logged-in shopper, if any
	Enquirer   Enquirer      `bson:"enquirer" json:"enquirer"`
	Items      []EnquiryItem `bson:"items" json:"items"`
	Recipients []string      `bson:"recipients,omitempty" json:"recipients,omitempty"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
}

// List returns the record's item snapshot as an EnquiryList.
func (r *EnquiryRecord) List() EnquiryList {
	return ListFromItems(r.Items)
}

// EnquiryStats summarises stored enquiries for the admin dashboard.
type EnquiryStats struct {
	Total       int64             `json:"total"`
	Last7Days   int64             `json:"last_7_days"`
	Last30Days  int64             `json:"last_30_days"`
	TopProducts []ProductEnquired `json:"top_products"`
}

// ProductEnquired is an aggregate row: how often and how many of an item were enquired.
type ProductEnquired struct {
	ItemID    int64 `bson:"_id" json:"item_id"`
	Quantity  int64 `bson:"quantity" json:"quantity"`
	Enquiries int64 `bson:"enquiries" json:"enquiries"`
}
