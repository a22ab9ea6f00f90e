package order

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/hospital-orders/internal/domain/pricing"
)

// TaxPolicy maps each order kind to the ordered tax components applied to it.
type TaxPolicy map[Kind][]pricing.TaxComponent

// DefaultTaxPolicy charges purchase orders a single 18% GST, splits sales
// orders into SGST/CGST halves and leaves stock transfers untaxed.
func DefaultTaxPolicy() TaxPolicy {
	nine := decimal.NewFromInt(9)
	return TaxPolicy{
		KindPurchase: {{Name: "GST", Rate: decimal.NewFromInt(18)}},
		KindSales:    {{Name: "SGST", Rate: nine}, {Name: "CGST", Rate: nine}},
		KindTransfer: nil,
	}
}

// For returns a copy of the components configured for k.
func (p TaxPolicy) For(k Kind) []pricing.TaxComponent {
	src := p[k]
	out := make([]pricing.TaxComponent, len(src))
	copy(out, src)
	return out
}

// ParseTaxComponents parses "NAME:RATE" entries such as "SGST:9".
func ParseTaxComponents(entries []string) ([]pricing.TaxComponent, error) {
	out := make([]pricing.TaxComponent, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rate, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Errorf("tax component %q: want NAME:RATE", entry)
		}
		r, err := decimal.NewFromString(strings.TrimSpace(rate))
		if err != nil {
			return nil, errors.Wrapf(err, "tax component %q", entry)
		}
		if r.IsNegative() {
			return nil, errors.Errorf("tax component %q: negative rate", entry)
		}
		out = append(out, pricing.TaxComponent{Name: name, Rate: r})
	}
	return out, nil
}
