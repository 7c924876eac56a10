package pool

// Statistics defaults. A player with no bowling record carries the default
// economy, which downstream display code treats as "not available".
const (
	DefaultEconomy = 15.0

	basePriceFloor = 20
	basePriceCap   = 200
	wicketWeight   = 15
	priceDivisor   = 3.5
)

// Player is a canonical auction pool record. It is immutable once built;
// the price paid for a player lives on the squad entry, not here.
type Player struct {
	Name       string  `json:"name"`
	StatsName  string  `json:"stats_name"`
	Runs       int     `json:"runs"`
	Wickets    int     `json:"wickets"`
	Average    float64 `json:"average"`
	Economy    float64 `json:"economy"`
	StrikeRate float64 `json:"strike_rate"`
	Demand     int     `json:"demand"`
	BasePrice  int     `json:"base_price"`
	Role       Role    `json:"role"`
}

// DemandScore computes the composite desirability score. The strike-rate
// term only applies when a strike rate is on record.
func DemandScore(runs, wickets int, strikeRate float64) float64 {
	score := float64(runs)/10 + float64(wickets*wicketWeight)
	if strikeRate > 0 {
		score += strikeRate / 5
	}
	return score
}

// BasePriceFor derives the floor bid from a demand score, clamped to
// [20, 200].
func BasePriceFor(demandScore float64) int {
	price := int(demandScore / priceDivisor)
	if price < basePriceFloor {
		return basePriceFloor
	}
	if price > basePriceCap {
		return basePriceCap
	}
	return price
}

// Pool is an ordered collection of players; order defines the auction
// sequence once shuffled.
type Pool []Player

// Find returns the player with the given display name, or false.
func (p Pool) Find(name string) (Player, bool) {
	for _, pl := range p {
		if pl.Name == name {
			return pl, true
		}
	}
	return Player{}, false
}

// Remove deletes the named player, preserving order. It reports whether a
// player was removed.
func (p *Pool) Remove(name string) bool {
	for i, pl := range *p {
		if pl.Name == name {
			*p = append((*p)[:i], (*p)[i+1:]...)
			return true
		}
	}
	return false
}

// Names returns the display names in pool order.
func (p Pool) Names() []string {
	names := make([]string, len(p))
	for i, pl := range p {
		names[i] = pl.Name
	}
	return names
}

// Clone returns an independent copy of the pool.
func (p Pool) Clone() Pool {
	out := make(Pool, len(p))
	copy(out, p)
	return out
}
