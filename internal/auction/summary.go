package auction

import (
	"sort"

	"github.com/jensholdgaard/franchise-auction/internal/session"
)

// TeamSummary is the dashboard view of one franchise mid-run.
type TeamSummary struct {
	Name        string   `json:"name"`
	Budget      int      `json:"budget_remaining"`
	SquadSize   int      `json:"squad_size"`
	SquadNames  []string `json:"players"`
	Batters     int      `json:"batters"`
	Bowlers     int      `json:"bowlers"`
	Keepers     int      `json:"wks"`
	AllRounders int      `json:"all_rounders"`
}

// TeamsSummary returns the dashboard view for every franchise in stable
// name order.
func (m *Manager) TeamsSummary() []TeamSummary {
	out := make([]TeamSummary, 0, len(m.teamOrder))
	for _, name := range m.teamOrder {
		tm := m.teams[name]
		out = append(out, TeamSummary{
			Name:        tm.Name,
			Budget:      tm.Budget,
			SquadSize:   len(tm.Squad),
			SquadNames:  tm.SquadNames(),
			Batters:     tm.Batters(),
			Bowlers:     tm.Bowlers(),
			Keepers:     tm.Keepers(),
			AllRounders: tm.AllRounders(),
		})
	}
	return out
}

// TeamAnalysis is the end-of-run composition and strength report for one
// franchise.
type TeamAnalysis struct {
	Name         string `json:"name"`
	TotalPlayers int    `json:"total_players"`
	BudgetLeft   int    `json:"budget_left"`
	Batters      int    `json:"batters"`
	Bowlers      int    `json:"bowlers"`
	Keepers      int    `json:"wks"`
	AllRounders  int    `json:"all_rounders"`
	TotalRuns    int    `json:"total_runs"`
	TotalWickets int    `json:"total_wickets"`
	Rating       int    `json:"rating"`
}

// EndSummary is the report shown when the run concludes.
type EndSummary struct {
	TopPurchases []session.SoldPlayer `json:"top_purchases"`
	TeamAnalysis []TeamAnalysis       `json:"team_analysis"`
	Sold         []session.SoldPlayer `json:"sold_players"`
	Unsold       []string             `json:"unsold_players"`
}

// Summary builds the end-of-run report: the five priciest purchases and a
// composition, aggregate-stats, and rating line per franchise.
func (m *Manager) Summary() *EndSummary {
	top := m.SoldLog()
	sort.SliceStable(top, func(i, j int) bool { return top[i].Price > top[j].Price })
	if len(top) > 5 {
		top = top[:5]
	}

	analysis := make([]TeamAnalysis, 0, len(m.teamOrder))
	for _, name := range m.teamOrder {
		tm := m.teams[name]
		runs, wickets := 0, 0
		for _, member := range tm.Squad {
			runs += member.Player.Runs
			wickets += member.Player.Wickets
		}
		analysis = append(analysis, TeamAnalysis{
			Name:         tm.Name,
			TotalPlayers: len(tm.Squad),
			BudgetLeft:   tm.Budget,
			Batters:      tm.Batters(),
			Bowlers:      tm.Bowlers(),
			Keepers:      tm.Keepers(),
			AllRounders:  tm.AllRounders(),
			TotalRuns:    runs,
			TotalWickets: wickets,
			Rating:       rating(tm.Batters(), tm.Bowlers(), tm.Keepers(), tm.AllRounders(), runs, wickets, tm.Rules.MaxSquadSize),
		})
	}

	unsoldNames := make([]string, 0, len(m.unsold))
	for _, p := range m.unsold {
		unsoldNames = append(unsoldNames, p.Name)
	}

	return &EndSummary{
		TopPurchases: top,
		TeamAnalysis: analysis,
		Sold:         m.SoldLog(),
		Unsold:       unsoldNames,
	}
}

// rating scores a squad out of 100 from its aggregate stats and how close
// it comes to the target composition.
func rating(batters, bowlers, keepers, allRounders, runs, wickets, maxSquad int) int {
	roleScore := float64(min(batters, 4)+min(bowlers, 4)+min(keepers, 1)+min(allRounders, 2)) / float64(maxSquad) * 100
	r := int((float64(runs)/100 + float64(wickets)*5 + roleScore*10) / 2)
	if r > 100 {
		r = 100
	}
	return r
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
