package models

import (
	"encoding/json"
	"testing"
)

func TestItemTypeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		assetTypeID int
		want        string
	}{
		{2, "TShirt"},
		{11, "Shirt"},
		{12, "Pants"},
		{17, "Head"},
		{18, "Face"},
		{19, "Gear"},
		{27, "Hair"},
		{28, "Hat"},
		{29, "Package"},
		{30, "Bundle"},
		{0, "Unknown"},
		{999, "Unknown"},
		{-1, "Unknown"},
	}

	for _, tt := range tests {
		if got := ItemTypeFor(tt.assetTypeID); got != tt.want {
			t.Errorf("ItemTypeFor(%d) = %q, want %q", tt.assetTypeID, got, tt.want)
		}
	}
}

func TestNewCatalogItem_DerivesItemType(t *testing.T) {
	t.Parallel()

	item := NewCatalogItem(42, "Cap", "A cap", "Builder", 15, 7, 28, true)
	if item.ItemType != "Hat" {
		t.Errorf("Expected itemType 'Hat', got %q", item.ItemType)
	}

	repriced := item.WithPrice(99)
	if repriced.Price != 99 {
		t.Errorf("Expected price 99, got %d", repriced.Price)
	}
	if item.Price != 15 {
		t.Errorf("WithPrice must not mutate the original, got %d", item.Price)
	}
}

func TestCatalogSummary_OmitsDetailFields(t *testing.T) {
	t.Parallel()

	item := NewCatalogItem(1, "Shades", "", "Someone", 5, 10, 18, true)
	data, err := json.Marshal(item.Summary())
	if err != nil {
		t.Fatalf("Failed to marshal summary: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to unmarshal summary: %v", err)
	}
	for _, key := range []string{"productId", "assetTypeId", "isForSale"} {
		if _, ok := fields[key]; ok {
			t.Errorf("Summary should not contain %q", key)
		}
	}
	if fields["itemType"] != "Face" {
		t.Errorf("Expected itemType 'Face', got %v", fields["itemType"])
	}
}

func TestCategoryAndSortLookup(t *testing.T) {
	t.Parallel()

	if id, ok := CategoryID("ALL"); !ok || id != 1 {
		t.Errorf("CategoryID(ALL) = %d, %v", id, ok)
	}
	if _, ok := CategoryID("weapons"); ok {
		t.Error("Expected unknown category to be rejected")
	}
	if id, ok := SortType(" priceDesc "); !ok || id != 5 {
		t.Errorf("SortType(priceDesc) = %d, %v", id, ok)
	}
	if _, ok := SortType("random"); ok {
		t.Error("Expected unknown sort to be rejected")
	}
}

func TestNamesResolve(t *testing.T) {
	t.Parallel()

	prev := -1
	for _, name := range CategoryNames() {
		id, ok := CategoryID(name)
		if !ok || id <= prev {
			t.Errorf("CategoryID(%q) = %d, %v; want a known ID above %d", name, id, ok, prev)
		}
		prev = id
	}
	for i, name := range SortNames() {
		if id, ok := SortType(name); !ok || id != i {
			t.Errorf("SortType(%q) = %d, %v, want %d", name, id, ok, i)
		}
	}
}
