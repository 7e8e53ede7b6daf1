package models

import "strings"

// ItemTypeUnknown is reported for asset types missing from the lookup table.
const ItemTypeUnknown = "Unknown"

var itemTypes = map[int]string{
	2:  "TShirt",
	11: "Shirt",
	12: "Pants",
	17: "Head",
	18: "Face",
	19: "Gear",
	27: "Hair",
	28: "Hat",
	29: "Package",
	30: "Bundle",
}

// ItemTypeFor maps an upstream asset type ID to its display name.
func ItemTypeFor(assetTypeID int) string {
	if name, ok := itemTypes[assetTypeID]; ok {
		return name
	}
	return ItemTypeUnknown
}

// CatalogItem is the normalized shape returned for search results and item lookups.
type CatalogItem struct {
	AssetID     int64  `json:"assetId"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	ProductID   int64  `json:"productId"`
	AssetTypeID int    `json:"assetTypeId"`
	Creator     string `json:"creator"`
	IsForSale   bool   `json:"isForSale"`
	ItemType    string `json:"itemType"`
}

// NewCatalogItem builds a CatalogItem and derives ItemType from assetTypeID.
func NewCatalogItem(assetID int64, name, description, creator string, price, productID int64, assetTypeID int, isForSale bool) CatalogItem {
	return CatalogItem{
		AssetID:     assetID,
		Name:        name,
		Price:       price,
		Description: description,
		ProductID:   productID,
		AssetTypeID: assetTypeID,
		Creator:     creator,
		IsForSale:   isForSale,
		ItemType:    ItemTypeFor(assetTypeID),
	}
}

// WithPrice returns a copy of the item carrying the given price.
func (c CatalogItem) WithPrice(price int64) CatalogItem {
	c.Price = price
	return c
}

// Summary returns the reduced field set used by popular and category listings.
func (c CatalogItem) Summary() CatalogSummary {
	return CatalogSummary{
		AssetID:     c.AssetID,
		Name:        c.Name,
		Price:       c.Price,
		Description: c.Description,
		Creator:     c.Creator,
		ItemType:    c.ItemType,
	}
}

// CatalogSummary is the reduced item shape for listing endpoints.
type CatalogSummary struct {
	AssetID     int64  `json:"assetId"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	Creator     string `json:"creator"`
	ItemType    string `json:"itemType"`
}

// SearchPage is the paginated search response.
type SearchPage struct {
	Items      []CatalogItem `json:"items"`
	NextCursor *string       `json:"nextCursor"`
}

// Category names accepted by the search and listing endpoints.
const (
	CategoryAll = "All"

	SortRelevance = "Relevance"
	SortSales     = "Sales"
)

var categoryIDs = map[string]int{
	"featured":         0,
	"all":              1,
	"collectibles":     2,
	"clothing":         3,
	"bodyparts":        4,
	"gear":             5,
	"accessories":      11,
	"avataranimations": 12,
}

var sortTypes = map[string]int{
	"relevance": 0,
	"favorited": 1,
	"sales":     2,
	"updated":   3,
	"priceasc":  4,
	"pricedesc": 5,
}

// CategoryID resolves a category name case-insensitively.
func CategoryID(name string) (int, bool) {
	id, ok := categoryIDs[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// SortType resolves a sort name case-insensitively.
func SortType(name string) (int, bool) {
	id, ok := sortTypes[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// CategoryNames lists the category names in upstream ID order.
func CategoryNames() []string {
	return []string{"Featured", "All", "Collectibles", "Clothing", "BodyParts", "Gear", "Accessories", "AvatarAnimations"}
}

// SortNames lists the sort names in upstream ID order.
func SortNames() []string {
	return []string{"Relevance", "Favorited", "Sales", "Updated", "PriceAsc", "PriceDesc"}
}

// SearchParams carries normalized search input.
type SearchParams struct {
	Query     string
	Category  string
	Sort      string
	Limit     int
	Cursor    string
	Paginated bool
}
