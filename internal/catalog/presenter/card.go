package presenter

import (
	"fmt"
	"math"
	"strings"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	PlaceholderImage  = "https://via.placeholder.com/400"
	LowStockThreshold = 5
	AIChoiceThreshold = 0.8
	AIChoiceBadge     = "AI Choice"
)

// Card is the display shape of one product. Discount fields are derived from
// the stored prices each time a card is built.
type Card struct {
	ID              string
	Name            string
	Description     string
	Category        string
	ImageURL        string
	Price           float64
	BasePrice       float64
	PriceLabel      string
	BasePriceLabel  string
	HasDiscount     bool
	DiscountPercent int
	DiscountLabel   string
	Stock           int
	InStock         bool
	LowStock        bool
	StockLabel      string
	Score           *float64
	ScorePercent    int
	Badges          []string
}

type Presenter struct {
	imageBase string
	currency  string
	printer   *message.Printer
}

func New(imageBaseURL, currency string) *Presenter {
	return &Presenter{
		imageBase: strings.TrimRight(imageBaseURL, "/"),
		currency:  currency,
		printer:   message.NewPrinter(language.English),
	}
}

func (p *Presenter) Card(prod model.Product) Card {
	hasDiscount, pct := model.Discount(prod.BasePrice, prod.CurrentPrice)

	c := Card{
		ID:              string(prod.ID),
		Name:            prod.Name,
		Description:     prod.Description,
		Category:        prod.Category,
		ImageURL:        p.ImageURL(prod.ImageRef),
		Price:           prod.CurrentPrice.InexactFloat64(),
		BasePrice:       prod.BasePrice.InexactFloat64(),
		HasDiscount:     hasDiscount,
		DiscountPercent: pct,
		Stock:           prod.Stock,
		InStock:         prod.Stock > 0,
		LowStock:        prod.Stock < LowStockThreshold,
		Score:           prod.Score,
		Badges:          append([]string{}, prod.Badges...),
	}

	c.PriceLabel = p.money(prod.CurrentPrice)
	c.BasePriceLabel = p.money(prod.BasePrice)
	if hasDiscount {
		c.DiscountLabel = fmt.Sprintf("-%d%%", pct)
	}

	if c.InStock {
		c.StockLabel = "In Stock"
	} else {
		c.StockLabel = "Out of Stock"
	}

	if prod.Score != nil {
		c.ScorePercent = int(math.Round(*prod.Score * 100))
		if *prod.Score > AIChoiceThreshold {
			c.Badges = append(c.Badges, AIChoiceBadge)
		}
	}
	return c
}

func (p *Presenter) Cards(products []model.Product) []Card {
	out := make([]Card, 0, len(products))
	for _, prod := range products {
		out = append(out, p.Card(prod))
	}
	return out
}

// ImageURL resolves a stored image reference for display.
func (p *Presenter) ImageURL(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return PlaceholderImage
	case model.IsAbsoluteImageRef(ref):
		return ref
	default:
		return p.imageBase + "/images/" + strings.TrimLeft(ref, "/")
	}
}

// money renders at most two fraction digits straight from the decimal, so
// labels stay exact beyond float64 precision.
func (p *Presenter) money(v decimal.Decimal) string {
	return p.printer.Sprintf("%s %s", p.currency, groupThousands(v.Round(2).String()))
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
