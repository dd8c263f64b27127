// Package pricing turns analysed word counts into billable pages and a price breakdown.
package pricing

import (
	"fmt"
	"math"
	"sort"
)

// Complexity is the assessed translation difficulty of a document
type Complexity string

const (
	ComplexityEasy   Complexity = "easy"
	ComplexityMedium Complexity = "medium"
	ComplexityHard   Complexity = "hard"
)

// IsValid returns true if the complexity is a known value
func (c Complexity) IsValid() bool {
	return c == ComplexityEasy || c == ComplexityMedium || c == ComplexityHard
}

// ParseComplexity normalizes a model- or staff-supplied complexity, defaulting to medium
func ParseComplexity(s string) Complexity {
	c := Complexity(s)
	if c.IsValid() {
		return c
	}
	return ComplexityMedium
}

// TaxRate is one tax applied to the subtotal.
// Compound rates apply on top of the subtotal plus all non-compound taxes.
type TaxRate struct {
	Name       string  `json:"name"`
	Rate       float64 `json:"rate"`
	IsCompound bool    `json:"is_compound"`
}

// Config is the canonical pricing table
type Config struct {
	WordsPerPage     float64
	PageStep         float64
	MinBillablePages float64
	Multipliers      map[Complexity]float64
}

// DefaultConfig returns 225 words per page, 0.01 page granularity and the 1.0/1.15/1.25 multiplier table
func DefaultConfig() Config {
	return Config{
		WordsPerPage:     225,
		PageStep:         0.01,
		MinBillablePages: 1,
		Multipliers: map[Complexity]float64{
			ComplexityEasy:   1.0,
			ComplexityMedium: 1.15,
			ComplexityHard:   1.25,
		},
	}
}

// Validate checks the table for values that would produce nonsense prices
func (c Config) Validate() error {
	if c.WordsPerPage <= 0 {
		return fmt.Errorf("words per page must be positive")
	}
	if c.PageStep <= 0 || c.PageStep > 1 {
		return fmt.Errorf("page step must be in (0, 1]")
	}
	if c.MinBillablePages < 0 {
		return fmt.Errorf("min billable pages cannot be negative")
	}
	for _, cx := range []Complexity{ComplexityEasy, ComplexityMedium, ComplexityHard} {
		m, ok := c.Multipliers[cx]
		if !ok {
			return fmt.Errorf("missing multiplier for complexity %q", cx)
		}
		if m <= 0 {
			return fmt.Errorf("multiplier for complexity %q must be positive", cx)
		}
	}
	return nil
}

// Line is one priced document
type Line struct {
	BillablePages      float64
	LineTotal          float64
	CertificationPrice float64
}

// Fees are the quote-level charges applied once on top of the document lines
type Fees struct {
	IsRush      bool
	RushFee     float64
	DeliveryFee float64
	TaxRates    []TaxRate
}

// Input is a single-document pricing request
type Input struct {
	WordCount          int
	Complexity         Complexity
	BaseRate           float64
	CertificationPrice float64
	Fees
}

// TaxLine is the computed amount of one tax
type TaxLine struct {
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Breakdown is the full price derivation.
// Subtotal includes certification and fees; Total = Subtotal + TaxAmount.
type Breakdown struct {
	BillablePages        float64   `json:"billable_pages"`
	ComplexityMultiplier float64   `json:"complexity_multiplier,omitempty"`
	TranslationTotal     float64   `json:"translation_total"`
	CertificationTotal   float64   `json:"certification_total"`
	RushFee              float64   `json:"rush_fee"`
	DeliveryFee          float64   `json:"delivery_fee"`
	Subtotal             float64   `json:"subtotal"`
	Taxes                []TaxLine `json:"taxes,omitempty"`
	TaxAmount            float64   `json:"tax_amount"`
	Total                float64   `json:"total"`
	DocumentCount        int       `json:"document_count"`
}

// Calculator computes prices from a validated Config. It holds no mutable state.
type Calculator struct {
	cfg Config
}

// NewCalculator validates cfg and returns a calculator
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing config: %w", err)
	}
	multipliers := make(map[Complexity]float64, len(cfg.Multipliers))
	for k, v := range cfg.Multipliers {
		multipliers[k] = v
	}
	cfg.Multipliers = multipliers
	return &Calculator{cfg: cfg}, nil
}

// Config returns a copy of the calculator's table
func (c *Calculator) Config() Config {
	cfg := c.cfg
	cfg.Multipliers = make(map[Complexity]float64, len(c.cfg.Multipliers))
	for k, v := range c.cfg.Multipliers {
		cfg.Multipliers[k] = v
	}
	return cfg
}

// Multiplier returns the configured multiplier, treating unknown complexity as medium
func (c *Calculator) Multiplier(cx Complexity) float64 {
	if m, ok := c.cfg.Multipliers[cx]; ok {
		return m
	}
	return c.cfg.Multipliers[ComplexityMedium]
}

// BillablePages returns wordCount / wordsPerPage * multiplier rounded up to the page step.
// Documents with words are never billed below the configured minimum.
func (c *Calculator) BillablePages(wordCount int, cx Complexity) float64 {
	if wordCount <= 0 {
		return 0
	}
	raw := float64(wordCount) / c.cfg.WordsPerPage * c.Multiplier(cx)
	pages := CeilToStep(raw, c.cfg.PageStep)
	if pages < c.cfg.MinBillablePages {
		return c.cfg.MinBillablePages
	}
	return pages
}

// LineTotal returns billable pages times the base rate, cent-rounded
func (c *Calculator) LineTotal(billablePages, baseRate float64) float64 {
	return RoundCents(billablePages * baseRate)
}

// PriceLine prices one document
func (c *Calculator) PriceLine(wordCount int, cx Complexity, baseRate, certificationPrice float64) Line {
	pages := c.BillablePages(wordCount, cx)
	return Line{
		BillablePages:      pages,
		LineTotal:          c.LineTotal(pages, baseRate),
		CertificationPrice: RoundCents(certificationPrice),
	}
}

// Compute prices a single document including fees and tax
func (c *Calculator) Compute(in Input) Breakdown {
	line := c.PriceLine(in.WordCount, in.Complexity, in.BaseRate, in.CertificationPrice)
	b := c.Aggregate([]Line{line}, in.Fees)
	b.ComplexityMultiplier = c.Multiplier(in.Complexity)
	return b
}

// Aggregate sums document lines and applies quote-level fees and taxes once
func (c *Calculator) Aggregate(lines []Line, fees Fees) Breakdown {
	var b Breakdown
	for _, l := range lines {
		b.BillablePages += l.BillablePages
		b.TranslationTotal += l.LineTotal
		b.CertificationTotal += l.CertificationPrice
	}
	b.DocumentCount = len(lines)
	b.BillablePages = CeilToStep(b.BillablePages, c.cfg.PageStep)
	b.TranslationTotal = RoundCents(b.TranslationTotal)
	b.CertificationTotal = RoundCents(b.CertificationTotal)

	if fees.IsRush {
		b.RushFee = RoundCents(fees.RushFee)
	}
	b.DeliveryFee = RoundCents(fees.DeliveryFee)
	b.Subtotal = RoundCents(b.TranslationTotal + b.CertificationTotal + b.RushFee + b.DeliveryFee)

	b.Taxes, b.TaxAmount = applyTaxes(b.Subtotal, fees.TaxRates)
	b.Total = RoundCents(b.Subtotal + b.TaxAmount)
	return b
}

func applyTaxes(subtotal float64, rates []TaxRate) ([]TaxLine, float64) {
	if len(rates) == 0 {
		return nil, 0
	}

	ordered := make([]TaxRate, len(rates))
	copy(ordered, rates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return !ordered[i].IsCompound && ordered[j].IsCompound
	})

	lines := make([]TaxLine, 0, len(ordered))
	var total float64
	for _, r := range ordered {
		if r.Rate <= 0 {
			continue
		}
		base := subtotal
		if r.IsCompound {
			base = subtotal + total
		}
		amount := RoundCents(base * r.Rate)
		lines = append(lines, TaxLine{Name: r.Name, Rate: r.Rate, Amount: amount})
		total = RoundCents(total + amount)
	}
	return lines, total
}

// EffectiveTaxRate returns the combined simple rate, ignoring compounding
func EffectiveTaxRate(rates []TaxRate) float64 {
	var sum float64
	for _, r := range rates {
		sum += r.Rate
	}
	return sum
}

const stepEpsilon = 1e-9

// CeilToStep rounds v up to the next multiple of step.
// Values within floating-point noise of a multiple are snapped to it first.
func CeilToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	n := v / step
	if r := math.Round(n); math.Abs(n-r) < stepEpsilon*math.Max(1, math.Abs(n)) {
		n = r
	}
	n = math.Ceil(n)

	perUnit := math.Round(1 / step)
	if math.Abs(perUnit*step-1) < stepEpsilon {
		return n / perUnit
	}
	return n * step
}

// RoundCents rounds half away from zero to two decimals
func RoundCents(v float64) float64 {
	return math.Round(v*100+math.Copysign(stepEpsilon, v)) / 100
}
