package pool

// Role classifies a player for squad-composition rules.
type Role string

const (
	RoleBatter       Role = "Batter"
	RoleBowler       Role = "Bowler"
	RoleAllRounder   Role = "All-Rounder"
	RoleWicketkeeper Role = "Wicketkeeper-Batter"
)

// IsBatting reports whether the role counts toward batting strength.
// Wicketkeeper-batters bat but are counted under the keeper minimum, so
// composition code pairs this with IsKeeper.
func (r Role) IsBatting() bool {
	return r == RoleBatter || r == RoleWicketkeeper
}

// IsKeeper reports whether the role satisfies the wicketkeeper minimum.
func (r Role) IsKeeper() bool {
	return r == RoleWicketkeeper
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBatter, RoleBowler, RoleAllRounder, RoleWicketkeeper:
		return true
	}
	return false
}

// wicketkeepers is the fixed allowlist of stats names classified as
// designated keepers regardless of their batting/bowling numbers.
var wicketkeepers = map[string]struct{}{
	"RR Pant":            {},
	"Q de Kock":          {},
	"SV Samson":          {},
	"Ishan Kishan":       {},
	"WP Saha":            {},
	"MS Dhoni":           {},
	"D Padikkal":         {},
	"P Simran Singh":     {},
	"JM Bairstow":        {},
	"KD Karthik":         {},
	"Rahmanullah Gurbaz": {},
	"N Pooran":           {},
	"H Klaasen":          {},
	"JM Sharma":          {},
}

// DeriveRole classifies a player from career totals. The keeper allowlist
// wins outright; otherwise run/wicket thresholds decide.
func DeriveRole(runs, wickets int, statsName string) Role {
	if _, ok := wicketkeepers[statsName]; ok {
		return RoleWicketkeeper
	}
	switch {
	case runs > 100 && wickets > 5:
		return RoleAllRounder
	case runs > 100:
		return RoleBatter
	case wickets > 5:
		return RoleBowler
	case wickets > 0:
		return RoleAllRounder
	default:
		return RoleBatter
	}
}
