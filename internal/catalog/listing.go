package catalog

import (
	"fmt"
	"math"
)

const (
	// SafetyBufferCm is subtracted from the measured clearance to get a
	// conservative usable-height rating.
	SafetyBufferCm = 5
	// LowHeadroomCutoffCm is the safety rating below which a listing counts
	// as low-headroom.
	LowHeadroomCutoffCm = 188

	cmPerInch = 2.54
)

// PriceTier is an ordinal price band. Valid tiers are 1 through 5.
type PriceTier int

// UnratedLabel is returned for tiers outside the known range.
const UnratedLabel = "Unrated"

var priceLabels = map[PriceTier]string{
	1: "Budget",
	2: "Mid-range",
	3: "Mid-range",
	4: "Premium",
	5: "Luxury",
}

// Listing is a single haven in the catalog. Measurements are in centimeters.
type Listing struct {
	ID                int64     `yaml:"id" json:"id"`
	Name              string    `yaml:"name" json:"name"`
	Location          string    `yaml:"location" json:"location"`
	Description       string    `yaml:"description" json:"description"`
	Images            []string  `yaml:"images" json:"images"`
	Features          []string  `yaml:"features" json:"features"`
	PriceTier         PriceTier `yaml:"price_tier" json:"priceTier"`
	LowestClearanceCm int       `yaml:"lowest_clearance_cm" json:"lowestClearanceCm"`
	UsableBedLengthCm int       `yaml:"usable_bed_length_cm" json:"usableBedLengthCm"`
	MemberRating      float64   `yaml:"member_rating" json:"memberRating"`
	SafetyMitigation  *string   `yaml:"safety_mitigation" json:"safetyMitigation"`
}

// SafetyRating returns the certified usable height of a listing.
func SafetyRating(l Listing) int {
	return l.LowestClearanceCm - SafetyBufferCm
}

// PriceLabel maps a tier to its display label. Unknown tiers are "Unrated".
func PriceLabel(t PriceTier) string {
	if label, ok := priceLabels[t]; ok {
		return label
	}
	return UnratedLabel
}

// CmToFeetInches formats a length as "F ft I in". Inches are rounded to the
// nearest whole inch; a value that rounds up to 12 carries into the feet.
func CmToFeetInches(cm float64) string {
	totalInches := cm / cmPerInch
	feet := int(math.Floor(totalInches / 12))
	inches := int(math.Round(math.Mod(totalInches, 12)))
	if inches == 12 {
		feet++
		inches = 0
	}
	return fmt.Sprintf("%d ft %d in", feet, inches)
}
