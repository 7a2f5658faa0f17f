package engine

import "math"

// MaxDamagePercent is the damage ceiling; attacks cap at this value.
const MaxDamagePercent = 100

// RepairCost returns the price of a full repair: the building's base cost
// scaled by its damage percent. Repair always restores to 0% damage,
// never partially, so the whole outstanding damage is priced at once.
func RepairCost(baseCost int64, damagePercent int) int64 {
	return int64(math.Round(float64(baseCost) * float64(damagePercent) / 100.0))
}

// CleanupCost returns the price of cleaning every outstanding cosmetic
// trick: rate (typically 5%) of the building's base cost per trick.
func CleanupCost(baseCost int64, rate float64, uncleanedCount int) int64 {
	return int64(math.Round(float64(baseCost) * rate * float64(uncleanedCount)))
}

// AddDamage applies a damage increase capped at the ceiling.
func AddDamage(current, added int) int {
	d := current + added
	if d > MaxDamagePercent {
		return MaxDamagePercent
	}
	return d
}
