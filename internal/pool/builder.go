package pool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jensholdgaard/franchise-auction/internal/config"
)

// DataLoadError reports a malformed or missing canonical data source. It is
// fatal for the whole run; initialization must not be retried.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// flexFloat decodes statistic cells that arrive as numbers, numeric
// strings, "NA", empty strings or null. Anything unparseable decodes to
// zero, matching the permissive source tables.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" || strings.EqualFold(str, "na") {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type battingRow struct {
	Player  string    `json:"Player"`
	Runs    flexFloat `json:"Runs"`
	Average flexFloat `json:"Average"`
	SR      flexFloat `json:"SR"`
}

type bowlingRow struct {
	Player  string    `json:"Player"`
	Wickets flexFloat `json:"Wickets"`
	Economy flexFloat `json:"Economy"`
}

// Builder merges the batting and bowling statistic tables with the team
// rosters into the canonical auction pool.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a pool Builder logging through the given logger.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build loads the configured sources and produces the canonical pool plus
// the team-name to roster-names mapping. Every player named in any roster
// gets a pool record; players missing from the stat tables get zero stats.
func (b *Builder) Build(cfg config.DataConfig) (Pool, map[string][]string, error) {
	var batting []battingRow
	if err := loadJSONList(cfg.BattingStats, &batting); err != nil {
		return nil, nil, &DataLoadError{Source: cfg.BattingStats, Err: err}
	}

	var bowling []bowlingRow
	if err := loadJSONList(cfg.BowlingStats, &bowling); err != nil {
		return nil, nil, &DataLoadError{Source: cfg.BowlingStats, Err: err}
	}

	rosters, err := loadRosters(cfg.Rosters)
	if err != nil {
		return nil, nil, &DataLoadError{Source: cfg.Rosters, Err: err}
	}

	batByName := make(map[string]battingRow, len(batting))
	for _, row := range batting {
		batByName[strings.TrimSpace(row.Player)] = row
	}
	bowlByName := make(map[string]bowlingRow, len(bowling))
	for _, row := range bowling {
		bowlByName[strings.TrimSpace(row.Player)] = row
	}

	// Roster iteration order is fixed by sorted team name so that
	// duplicate resolution is deterministic.
	teamNames := make([]string, 0, len(rosters))
	for name := range rosters {
		teamNames = append(teamNames, name)
	}
	sort.Strings(teamNames)

	var out Pool
	seen := make(map[string]struct{})
	for _, teamName := range teamNames {
		for _, raw := range rosters[teamName] {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				b.logger.Warn("duplicate player across rosters, keeping first occurrence",
					slog.String("player", name),
					slog.String("team", teamName),
				)
				continue
			}
			seen[name] = struct{}{}
			out = append(out, buildPlayer(name, batByName, bowlByName))
		}
	}

	if len(out) == 0 {
		return nil, nil, &DataLoadError{Source: cfg.Rosters, Err: fmt.Errorf("rosters name no players")}
	}

	b.logger.Info("auction pool built",
		slog.Int("players", len(out)),
		slog.Int("teams", len(rosters)),
	)
	return out, rosters, nil
}

func buildPlayer(name string, bats map[string]battingRow, bowls map[string]bowlingRow) Player {
	statsName := StatsName(name)

	var runs int
	var avg, sr float64
	if row, ok := bats[statsName]; ok {
		runs = int(row.Runs)
		avg = float64(row.Average)
		sr = float64(row.SR)
	}

	var wickets int
	economy := DefaultEconomy
	if row, ok := bowls[statsName]; ok {
		wickets = int(row.Wickets)
		if row.Economy > 0 {
			economy = float64(row.Economy)
		}
	}

	score := DemandScore(runs, wickets, sr)
	return Player{
		Name:       name,
		StatsName:  statsName,
		Runs:       runs,
		Wickets:    wickets,
		Average:    avg,
		Economy:    economy,
		StrikeRate: sr,
		Demand:     int(score),
		BasePrice:  BasePriceFor(score),
		Role:       DeriveRole(runs, wickets, statsName),
	}
}

func loadJSONList(path string, dst any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("not a valid statistics table: %w", err)
	}
	return nil
}

func loadRosters(path string) (map[string][]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var rosters map[string][]string
	if err := json.Unmarshal(data, &rosters); err != nil {
		return nil, fmt.Errorf("not a valid roster mapping: %w", err)
	}
	if len(rosters) == 0 {
		return nil, fmt.Errorf("roster mapping is empty")
	}
	return rosters, nil
}
