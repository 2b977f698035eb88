// AngelaMos | 2026
// catalog.go

package billing

import (
	"fmt"

	"github.com/vedomo/vedomo-api/internal/core"
	"github.com/vedomo/vedomo-api/internal/entitlement"
)

// Product is one purchasable subscription: a provider price reference and
// the role it grants. The catalog is the single place that translates
// "what was bought" into "what the user may see" — checkout and the webhook
// handler both resolve through it, nothing hardcodes prices per event.
type Product struct {
	PriceID   string
	Role      entitlement.Role
	Name      string
	NameRU    string
	AmountUSD string
	Interval  string
}

type Catalog struct {
	byPrice map[string]Product
	ordered []Product
}

func NewCatalog(products []Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("catalog: no products configured")
	}

	byPrice := make(map[string]Product, len(products))
	ordered := make([]Product, 0, len(products))

	for _, p := range products {
		if p.PriceID == "" {
			return nil, fmt.Errorf("catalog: product %q has no price id", p.Name)
		}
		if !p.Role.IsSubscriber() {
			return nil, fmt.Errorf(
				"catalog: product %q grants role %q: %w",
				p.Name, p.Role, core.ErrInvalidInput,
			)
		}
		if _, dup := byPrice[p.PriceID]; dup {
			return nil, fmt.Errorf("catalog: duplicate price id %q", p.PriceID)
		}

		byPrice[p.PriceID] = p
		ordered = append(ordered, p)
	}

	return &Catalog{byPrice: byPrice, ordered: ordered}, nil
}

// Resolve maps a provider price id to its product. Unknown ids return
// ok=false; callers must treat that as inert, never guess a role.
func (c *Catalog) Resolve(priceID string) (Product, bool) {
	p, ok := c.byPrice[priceID]
	return p, ok
}

// Products returns the catalog in configuration order, for the pricing page.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.ordered))
	copy(out, c.ordered)
	return out
}
