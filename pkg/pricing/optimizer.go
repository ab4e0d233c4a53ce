package pricing

import "fmt"

// Result is the optimizer output. For FormatOptimized, PriceList and Index are
// populated and Raw is nil. For FormatFull, Raw carries the unmodified
// upstream records and Index is nil, which downstream code must treat as
// "index unavailable" rather than "no products".
type Result struct {
	PriceList     []Product
	Raw           []RawProduct
	Index         map[string]PricePoint
	TotalProducts int
	HasDiscounts  bool
	Format        Format
}

// Optimize transforms raw upstream records into the requested representation.
// The price index is built in the same pass as the product list, so the two
// can never drift apart. Empty input yields an empty result, never an error.
func Optimize(products []RawProduct, format Format) Result {
	if format == FormatFull {
		return optimizeFull(products)
	}
	return optimizeCompact(products)
}

func optimizeFull(products []RawProduct) Result {
	res := Result{
		Raw:           products,
		TotalProducts: len(products),
		Format:        FormatFull,
	}
	for _, p := range products {
		if p.ResolvedListPrice() > p.ResolvedFinalPrice() {
			res.HasDiscounts = true
			break
		}
	}
	return res
}

func optimizeCompact(products []RawProduct) Result {
	res := Result{
		PriceList: make([]Product, 0, len(products)),
		Index:     make(map[string]PricePoint, len(products)),
		Format:    FormatOptimized,
	}

	for i, raw := range products {
		sku := raw.ResolvedSKU()
		if sku == "" {
			// Upstream omitted the SKU entirely. Synthesize a positional
			// placeholder so the record stays addressable in the index.
			sku = fmt.Sprintf("SKU-%d", i+1)
		}

		final := raw.ResolvedFinalPrice()
		list := raw.ResolvedListPrice()
		p := Product{
			SKU:         sku,
			Name:        truncateName(raw.Name),
			FinalPrice:  final,
			ListPrice:   list,
			HasDiscount: list > final,
		}

		res.PriceList = append(res.PriceList, p)
		res.Index[sku] = PricePoint{
			FinalPrice:  final,
			ListPrice:   list,
			HasDiscount: p.HasDiscount,
		}
		if p.HasDiscount {
			res.HasDiscounts = true
		}
	}

	res.TotalProducts = len(res.PriceList)
	return res
}

// truncateName caps a product name at MaxNameLength runes.
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxNameLength {
		return name
	}
	return string(runes[:MaxNameLength])
}
