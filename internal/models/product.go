package models

// ProductType follows the storefront's product kinds.
type ProductType string

const (
	ProductTypeSimple    ProductType = "simple"
	ProductTypeExternal  ProductType = "external"
	ProductTypeGrouped   ProductType = "grouped"
	ProductTypeVariable  ProductType = "variable"
	ProductTypeVariation ProductType = "variation"
)

// Product is the subset of catalog data the enquiry pages need.
type Product struct {
	ID        int64       `bson:"_id" json:"id"`
	Name      string      `bson:"name" json:"name"`
	Type      ProductType `bson:"type" json:"type"`
	Price     float64     `bson:"price" json:"price"`
	Permalink string      `bson:"permalink" json:"permalink"`
	Thumbnail string      `bson:"thumbnail" json:"thumbnail"`
	AuthorID  string      `bson:"author_id" json:"author_id"`
	ParentID  int64       `bson:"parent_id,omitempty" json:"parent_id,omitempty"` // Set on variations
}
