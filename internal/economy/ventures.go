// Package economy tracks the player's capital and venture upgrades, and
// builds the ecosystem view of concept progress.
package economy

// Venture is one rung of the upgrade ladder.
type Venture struct {
	Level int    `json:"level"`
	Cost  int64  `json:"cost"`
	Name  string `json:"name"`
}

// Ventures is ordered by level. Level 1 is where every player starts.
var Ventures = []Venture{
	{Level: 1, Cost: 0, Name: "The Garage"},
	{Level: 2, Cost: 500, Name: "The Strip Mall Office"},
	{Level: 3, Cost: 1500, Name: "The Accelerator"},
	{Level: 4, Cost: 3000, Name: "The Corporate Campus"},
	{Level: 5, Cost: 5000, Name: "The Skyscraper"},
}

// VentureAt returns the venture for level.
func VentureAt(level int) (Venture, bool) {
	for _, v := range Ventures {
		if v.Level == level {
			return v, true
		}
	}
	return Venture{}, false
}

// NextVenture returns the upgrade after level, or false at the top.
func NextVenture(level int) (Venture, bool) {
	return VentureAt(level + 1)
}
