package source

import (
	"context"
	"maps"
)

// curatedCatalog backs the sources that have no public API. Each entry stands
// in for a scraper that was never worth building; the payload shapes mirror
// what those storefronts expose so the normalizer gets exercised for real.
// Order is the ingestion order.
var curatedCatalog = []struct {
	Name  string
	Items []RawItem
}{
	{
		Name: "lego_ideas",
		Items: []RawItem{
			{"id": "ideas_001", "name": "Sample LEGO Ideas Set", "theme": "LEGO Ideas", "year": 2024, "pieces": 1500, "status": "Approved", "votes": 10000, "creator": "Community Member"},
		},
	},
	{
		Name: "lego_shop",
		Items: []RawItem{
			{"id": "shop_001", "name": "Sample Shop Set", "theme": "City", "year": 2024, "pieces": 800, "price": 79.99, "availability": "In Stock", "rating": 4.5},
		},
	},
	{
		Name: "lego_education",
		Items: []RawItem{
			{"id": "edu_001", "name": "LEGO Education SPIKE Prime Set", "theme": "Education", "year": 2024, "pieces": 528, "category": "Robotics", "age_range": "10-14", "price": 339.95},
			{"id": "edu_002", "name": "LEGO Education WeDo 2.0", "theme": "Education", "year": 2023, "pieces": 280, "category": "Coding", "age_range": "7-10", "price": 189.95},
		},
	},
	{
		Name: "lego_architecture",
		Items: []RawItem{
			{"id": "arch_001", "name": "LEGO Architecture Empire State Building", "theme": "Architecture", "year": 2024, "pieces": 1767, "category": "Landmarks", "difficulty": "Expert", "price": 119.99},
			{"id": "arch_002", "name": "LEGO Architecture Tokyo", "theme": "Architecture", "year": 2023, "pieces": 547, "category": "Cityscapes", "difficulty": "Intermediate", "price": 59.99},
		},
	},
	{
		Name: "lego_technic",
		Items: []RawItem{
			{"id": "tech_001", "name": "LEGO Technic Lamborghini Sián", "theme": "Technic", "year": 2024, "pieces": 3696, "category": "Cars", "difficulty": "Expert", "price": 379.99, "motorized": true},
			{"id": "tech_002", "name": "LEGO Technic Cat D11 Bulldozer", "theme": "Technic", "year": 2023, "pieces": 3854, "category": "Construction", "difficulty": "Expert", "price": 449.99, "motorized": true},
		},
	},
	{
		Name: "lego_creator_expert",
		Items: []RawItem{
			{"id": "ce_001", "name": "LEGO Creator Expert Titanic", "theme": "Creator Expert", "year": 2024, "pieces": 9090, "category": "Ships", "difficulty": "Expert", "price": 679.99, "display_size": "135cm x 44cm"},
			{"id": "ce_002", "name": "LEGO Creator Expert Colosseum", "theme": "Creator Expert", "year": 2023, "pieces": 9036, "category": "Landmarks", "difficulty": "Expert", "price": 549.99, "display_size": "27cm x 52cm x 59cm"},
		},
	},
	{
		Name: "lego_minifigures",
		Items: []RawItem{
			{"id": "minifig_001", "name": "LEGO Minifigures Series 25", "theme": "Minifigures", "year": 2024, "pieces": 3, "category": "Collectible", "price": 4.99, "rarity": "Common"},
			{"id": "minifig_002", "name": "LEGO Minifigures Disney Series 2", "theme": "Minifigures", "year": 2023, "pieces": 3, "category": "Collectible", "price": 4.99, "rarity": "Rare"},
		},
	},
	{
		Name: "lego_duplo",
		Items: []RawItem{
			{"id": "duplo_001", "name": "LEGO DUPLO Town Fire Station", "theme": "DUPLO", "year": 2024, "pieces": 25, "category": "Town", "age_range": "2-5", "price": 19.99},
			{"id": "duplo_002", "name": "LEGO DUPLO Disney Princess Belle's Castle", "theme": "DUPLO", "year": 2023, "pieces": 35, "category": "Disney", "age_range": "2-5", "price": 24.99},
		},
	},
	{
		Name: "lego_juniors",
		Items: []RawItem{
			{"id": "juniors_001", "name": "LEGO Juniors Police Station", "theme": "Juniors", "year": 2024, "pieces": 68, "category": "Police", "age_range": "4-7", "price": 14.99},
		},
	},
}

// Curated serves a fixed sample catalog for one placeholder source.
type Curated struct {
	name  string
	items []RawItem
}

// NewCurated builds a placeholder adapter from explicit items; tests and the
// standard set in CuratedSources both go through here.
func NewCurated(name string, items []RawItem) *Curated {
	return &Curated{name: name, items: items}
}

// CuratedSources returns the full placeholder roster in ingestion order.
func CuratedSources() []Adapter {
	adapters := make([]Adapter, 0, len(curatedCatalog))
	for _, entry := range curatedCatalog {
		adapters = append(adapters, NewCurated(entry.Name, entry.Items))
	}
	return adapters
}

func (c *Curated) Name() string { return c.name }

// Fetch hands out copies so a caller mutating an item cannot poison later runs.
func (c *Curated) Fetch(ctx context.Context, limit int) ([]RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(c.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]RawItem, 0, n)
	for _, it := range c.items[:n] {
		out = append(out, maps.Clone(it))
	}
	return out, nil
}
