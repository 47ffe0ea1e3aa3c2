package inventory

import (
	"testing"

	"github.com/shopspring/decimal"

	"filaflow/internal"
)

func spoolDetail(id int64, material, name string, initial, remaining float64, price string) internal.SpoolDetail {
	f := internal.Filament{ID: id, Name: name, Material: material}
	if price != "" {
		f.Price = internal.DecimalPtr(decimal.RequireFromString(price))
	}
	return internal.SpoolDetail{
		Spool:    internal.Spool{ID: id, FilamentID: id, InitialWeightGrams: initial, RemainingWeightGrams: remaining},
		Filament: f,
	}
}

func TestStockPercent(t *testing.T) {
	cases := []struct {
		initial   float64
		remaining float64
		want      int
	}{
		{1000, 1000, 100},
		{1000, 150, 15},
		{1000, 0, 0},
		{500, 250, 50},
		{1000, 333, 33},
		// Zero initial weight falls back to the 1kg default.
		{0, 400, 40},
	}
	for _, c := range cases {
		s := internal.Spool{InitialWeightGrams: c.initial, RemainingWeightGrams: c.remaining}
		if got := StockPercent(s); got != c.want {
			t.Fatalf("StockPercent(%v/%v)=%d want %d", c.remaining, c.initial, got, c.want)
		}
	}
}

func TestIsLowStock(t *testing.T) {
	if IsLowStock(internal.Spool{InitialWeightGrams: 1000, RemainingWeightGrams: 200}) {
		t.Fatal("20% is not below the threshold")
	}
	if !IsLowStock(internal.Spool{InitialWeightGrams: 1000, RemainingWeightGrams: 199}) {
		t.Fatal("19.9% should be low stock")
	}
}

func TestEstimatedValue(t *testing.T) {
	s := internal.Spool{RemainingWeightGrams: 750}
	f := internal.Filament{Price: internal.DecimalPtr(decimal.RequireFromString("20.00"))}
	if got := EstimatedValue(s, f); !got.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("value=%s", got)
	}
	if got := EstimatedValue(s, internal.Filament{}); !got.IsZero() {
		t.Fatalf("value without price=%s", got)
	}
}

func TestGroupByMaterial(t *testing.T) {
	spools := []internal.SpoolDetail{
		spoolDetail(1, "PLA", "Black", 1000, 1000, ""),
		spoolDetail(2, "PETG", "Blue", 1000, 1000, ""),
		spoolDetail(3, "PLA", "White", 1000, 1000, ""),
		spoolDetail(4, "", "Mystery", 1000, 1000, ""),
	}

	groups := GroupByMaterial(spools)
	if len(groups) != 3 {
		t.Fatalf("groups=%d", len(groups))
	}
	if groups[0].Material != "PLA" || len(groups[0].Spools) != 2 {
		t.Fatalf("group0=%+v", groups[0])
	}
	if groups[1].Material != "PETG" {
		t.Fatalf("group1=%s", groups[1].Material)
	}
	if groups[2].Material != OtherMaterialGroup || len(groups[2].Spools) != 1 {
		t.Fatalf("group2=%+v", groups[2])
	}
}

func TestFilter(t *testing.T) {
	vendor := "Bambu Lab"
	spools := []internal.SpoolDetail{
		spoolDetail(1, "PLA", "Black", 1000, 1000, ""),
		spoolDetail(2, "PETG", "Blue", 1000, 1000, ""),
	}
	spools[0].Location = "Shelf A"
	spools[1].VendorName = &vendor

	if got := Filter(spools, ""); len(got) != 2 {
		t.Fatalf("empty query len=%d", len(got))
	}
	if got := Filter(spools, "petg"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("material query: %+v", got)
	}
	if got := Filter(spools, "shelf"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("location query: %+v", got)
	}
	if got := Filter(spools, "bambu"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("vendor query: %+v", got)
	}
	if got := Filter(spools, "nothing-matches"); len(got) != 0 {
		t.Fatalf("miss query: %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	spools := []internal.SpoolDetail{
		spoolDetail(1, "PLA", "Black", 1000, 1000, "10.00"),
		spoolDetail(2, "PLA", "White", 1000, 150, "20.00"),
	}
	spools[1].Extra.NeedsVerification = true

	s := Summarize(spools, 5, 2)
	if s.SpoolCount != 2 || s.FilamentCount != 5 || s.VendorCount != 2 {
		t.Fatalf("counts: %+v", s)
	}
	if s.TotalRemainingGrams != 1150 {
		t.Fatalf("remaining=%f", s.TotalRemainingGrams)
	}
	// 1kg at 10 + 0.15kg at 20 = 13.00
	if !s.TotalValue.Equal(decimal.RequireFromString("13")) {
		t.Fatalf("value=%s", s.TotalValue)
	}
	if len(s.LowStock) != 1 || s.LowStock[0].ID != 2 {
		t.Fatalf("lowStock=%+v", s.LowStock)
	}
	if len(s.Unverified) != 1 || s.Unverified[0].ID != 2 {
		t.Fatalf("unverified=%+v", s.Unverified)
	}
	if len(s.Groups) != 1 || s.Groups[0].Material != "PLA" {
		t.Fatalf("groups=%+v", s.Groups)
	}
}
