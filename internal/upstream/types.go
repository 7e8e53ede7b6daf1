package upstream

import (
	"github.com/benvon/catalog-proxy/internal/models"
)

// SearchRequest is a catalog search as sent upstream.
type SearchRequest struct {
	Keyword    string
	CategoryID int
	SortType   int
	Limit      int
	Cursor     string
}

// SearchResponse is the catalog search payload.
type SearchResponse struct {
	Data           []SearchItem `json:"data"`
	NextPageCursor *string      `json:"nextPageCursor"`
}

// SearchItem is one catalog search record.
type SearchItem struct {
	ID          int64  `json:"id"`
	ItemType    string `json:"itemType"`
	AssetType   int    `json:"assetType"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProductID   int64  `json:"productId"`
	Price       *int64 `json:"price"`
	PriceStatus string `json:"priceStatus"`
	CreatorName string `json:"creatorName"`
}

// CatalogItem normalizes the record. A missing price becomes 0 and the item is
// for sale only when a price is present and the record is not marked off sale.
func (s SearchItem) CatalogItem() models.CatalogItem {
	var price int64
	if s.Price != nil {
		price = *s.Price
	}
	forSale := s.Price != nil && s.PriceStatus != "Off Sale"
	return models.NewCatalogItem(s.ID, s.Name, s.Description, s.CreatorName, price, s.ProductID, s.AssetType, forSale)
}

// Items normalizes every record in the response, preserving order.
func (r *SearchResponse) Items() []models.CatalogItem {
	items := make([]models.CatalogItem, 0, len(r.Data))
	for _, d := range r.Data {
		items = append(items, d.CatalogItem())
	}
	return items
}

// AssetDetail is the economy API asset detail payload.
type AssetDetail struct {
	AssetID      int64  `json:"AssetId"`
	ProductID    int64  `json:"ProductId"`
	Name         string `json:"Name"`
	Description  string `json:"Description"`
	AssetTypeID  int    `json:"AssetTypeId"`
	PriceInRobux *int64 `json:"PriceInRobux"`
	IsForSale    bool   `json:"IsForSale"`
	Creator      struct {
		ID   int64  `json:"Id"`
		Name string `json:"Name"`
	} `json:"Creator"`
}

// CatalogItem normalizes the detail record.
func (a AssetDetail) CatalogItem() models.CatalogItem {
	var price int64
	if a.PriceInRobux != nil {
		price = *a.PriceInRobux
	}
	return models.NewCatalogItem(a.AssetID, a.Name, a.Description, a.Creator.Name, price, a.ProductID, a.AssetTypeID, a.IsForSale)
}
