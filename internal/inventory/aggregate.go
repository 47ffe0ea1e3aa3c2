// Package inventory derives dashboard figures from the current spool and
// filament collections. Everything here is a pure read-model recomputed on
// every call; nothing is cached across mutations.
package inventory

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"filaflow/internal"
)

const (
	// DefaultInitialWeightGrams substitutes a zero or absent initial weight
	// so stock percent never divides by zero.
	DefaultInitialWeightGrams = 1000.0

	LowStockThresholdPercent = 20

	// OtherMaterialGroup buckets spools whose filament has no material.
	OtherMaterialGroup = "Other"
)

// StockPercent is the rounded remaining share of a spool's initial weight.
func StockPercent(s internal.Spool) int {
	initial := s.InitialWeightGrams
	if initial <= 0 {
		initial = DefaultInitialWeightGrams
	}
	return int(math.Round(s.RemainingWeightGrams / initial * 100))
}

func IsLowStock(s internal.Spool) bool {
	return StockPercent(s) < LowStockThresholdPercent
}

// EstimatedValue prices the remaining mass against the filament's €/kg price.
// A filament without a price values at zero.
func EstimatedValue(s internal.Spool, f internal.Filament) decimal.Decimal {
	price := decimal.Zero
	if f.Price != nil {
		price = *f.Price
	}
	return decimal.NewFromFloat(s.RemainingWeightGrams / 1000).Mul(price)
}

type MaterialGroup struct {
	Material string                 `json:"material"`
	Spools   []internal.SpoolDetail `json:"spools"`
}

// GroupByMaterial buckets spools by filament material, preserving first-seen
// group order.
func GroupByMaterial(spools []internal.SpoolDetail) []MaterialGroup {
	index := map[string]int{}
	groups := []MaterialGroup{}
	for _, s := range spools {
		material := s.Filament.Material
		if strings.TrimSpace(material) == "" {
			material = OtherMaterialGroup
		}
		i, ok := index[material]
		if !ok {
			i = len(groups)
			index[material] = i
			groups = append(groups, MaterialGroup{Material: material})
		}
		groups[i].Spools = append(groups[i].Spools, s)
	}
	return groups
}

// Filter keeps spools where any of filament name, material, vendor name or
// location contains the query, case-insensitively. An empty query keeps
// everything.
func Filter(spools []internal.SpoolDetail, query string) []internal.SpoolDetail {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return spools
	}

	out := make([]internal.SpoolDetail, 0, len(spools))
	for _, s := range spools {
		fields := []string{s.Filament.Name, s.Filament.Material, s.Location}
		if s.VendorName != nil {
			fields = append(fields, *s.VendorName)
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

type Summary struct {
	SpoolCount          int                    `json:"spoolCount"`
	FilamentCount       int                    `json:"filamentCount"`
	VendorCount         int                    `json:"vendorCount"`
	TotalRemainingGrams float64                `json:"totalRemainingGrams"`
	TotalValue          decimal.Decimal        `json:"totalValue"`
	LowStock            []internal.SpoolDetail `json:"lowStock"`
	Unverified          []internal.SpoolDetail `json:"unverified"`
	Groups              []MaterialGroup        `json:"groups"`
}

// Summarize computes the dashboard view over the current collections.
func Summarize(spools []internal.SpoolDetail, filamentCount, vendorCount int) Summary {
	summary := Summary{
		SpoolCount:    len(spools),
		FilamentCount: filamentCount,
		VendorCount:   vendorCount,
		TotalValue:    decimal.Zero,
		LowStock:      []internal.SpoolDetail{},
		Unverified:    []internal.SpoolDetail{},
		Groups:        GroupByMaterial(spools),
	}
	for _, s := range spools {
		summary.TotalRemainingGrams += s.RemainingWeightGrams
		summary.TotalValue = summary.TotalValue.Add(EstimatedValue(s.Spool, s.Filament))
		if IsLowStock(s.Spool) {
			summary.LowStock = append(summary.LowStock, s)
		}
		if IsUnverified(s.Spool) {
			summary.Unverified = append(summary.Unverified, s)
		}
	}
	summary.TotalValue = summary.TotalValue.Round(2)
	return summary
}
