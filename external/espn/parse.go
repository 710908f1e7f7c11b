package espn

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
)

// ErrPayloadFormat marks responses the parser does not recognize, as opposed
// to transport failures. Callers treat it as non-retryable.
var ErrPayloadFormat = crerr.New("unrecognized standings payload")

type payloadEnvelope struct {
	Name         string          `json:"name"`
	Abbreviation string          `json:"abbreviation"`
	Seasons      []seasonBlock   `json:"seasons"`
	Children     []childBlock    `json:"children"`
	Standings    *standingsBlock `json:"standings"`
}

type seasonBlock struct {
	Year        int               `json:"year"`
	DisplayName string            `json:"displayName"`
	Types       []seasonTypeBlock `json:"types"`
}

type seasonTypeBlock struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	HasStandings bool   `json:"hasStandings"`
}

type childBlock struct {
	Name         string          `json:"name"`
	Abbreviation string          `json:"abbreviation"`
	Standings    *standingsBlock `json:"standings"`
}

type standingsBlock struct {
	// Entries stay raw so each one can be decoded twice: once into the typed
	// shape, once into a map that rides along as Entry.Raw.
	Entries []json.RawMessage `json:"entries"`
}

type entryBlock struct {
	Team  teamBlock   `json:"team"`
	Note  *noteBlock  `json:"note"`
	Stats []statBlock `json:"stats"`
}

type teamBlock struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	Name             string `json:"name"`
	ShortDisplayName string `json:"shortDisplayName"`
	Abbreviation     string `json:"abbreviation"`
}

type noteBlock struct {
	Description string `json:"description"`
}

type statBlock struct {
	Name         string   `json:"name"`
	Value        *float64 `json:"value"`
	DisplayValue string   `json:"displayValue"`
	Summary      string   `json:"summary"`
}

func parsePayload(confederation standings.Confederation, raw []byte) ([]standings.Group, error) {
	var envelope payloadEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	stage := inferStage(envelope.Seasons)

	if len(envelope.Children) > 0 {
		groups := make([]standings.Group, 0, len(envelope.Children))
		for _, child := range envelope.Children {
			if child.Standings == nil || len(child.Standings.Entries) == 0 {
				continue
			}
			entries, err := parseEntries(child.Standings.Entries)
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				continue
			}
			groups = append(groups, standings.Group{
				Confederation: confederation,
				GroupName:     firstNonEmpty(child.Name, child.Abbreviation, "Group"),
				Stage:         stage,
				Entries:       entries,
			})
		}
		return groups, nil
	}

	if envelope.Standings != nil && len(envelope.Standings.Entries) > 0 {
		entries, err := parseEntries(envelope.Standings.Entries)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, nil
		}
		return []standings.Group{{
			Confederation: confederation,
			GroupName:     firstNonEmpty(envelope.Name, "League"),
			Stage:         stage,
			Entries:       entries,
		}}, nil
	}

	return nil, fmt.Errorf("%w: no children and no standings entries", ErrPayloadFormat)
}

// inferStage reads the leading season only, which is the active campaign.
// The first type flagged as carrying standings names the current round; when
// no type is flagged the season's own display name stands in. "unknown" is
// reserved for payloads with no seasons at all.
func inferStage(seasons []seasonBlock) string {
	if len(seasons) == 0 {
		return "unknown"
	}

	season := seasons[0]
	for _, seasonType := range season.Types {
		if !seasonType.HasStandings {
			continue
		}
		return firstNonEmpty(seasonType.Name, seasonType.DisplayName, "stage")
	}
	return firstNonEmpty(season.DisplayName, "stage")
}

func parseEntries(rawEntries []json.RawMessage) ([]standings.Entry, error) {
	out := make([]standings.Entry, 0, len(rawEntries))
	for _, rawEntry := range rawEntries {
		var typed entryBlock
		if err := sonic.Unmarshal(rawEntry, &typed); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}

		teamName := strings.TrimSpace(firstNonEmpty(
			typed.Team.DisplayName,
			typed.Team.Name,
			typed.Team.ShortDisplayName,
		))
		if teamName == "" {
			continue
		}

		var asMap map[string]any
		if err := sonic.Unmarshal(rawEntry, &asMap); err != nil {
			return nil, fmt.Errorf("decode entry raw: %w", err)
		}

		entry := standings.Entry{
			TeamID:   strings.TrimSpace(typed.Team.ID),
			TeamCode: strings.TrimSpace(typed.Team.Abbreviation),
			TeamName: teamName,
			Raw:      asMap,
		}
		if typed.Note != nil {
			entry.Note = strings.TrimSpace(typed.Note.Description)
		}
		applyStats(&entry, typed.Stats)

		out = append(out, entry)
	}
	return out, nil
}

func applyStats(entry *standings.Entry, stats []statBlock) {
	for _, stat := range stats {
		value := statValue(stat)
		switch stat.Name {
		case "rank":
			entry.Rank = value
		case "gamesPlayed":
			entry.GamesPlayed = value
		case "wins":
			entry.Wins = value
		case "ties":
			entry.Draws = value
		case "losses":
			entry.Losses = value
		case "pointsFor":
			entry.GoalsFor = value
		case "pointsAgainst":
			entry.GoalsAgainst = value
		case "pointDifferential":
			entry.GoalDifference = value
		case "points":
			entry.Points = value
		case "overall":
			if summary := strings.TrimSpace(firstNonEmpty(stat.Summary, stat.DisplayValue)); summary != "" {
				entry.RecordSummary = summary
			}
		}
	}
}

// statValue prefers the numeric value, falls back to the display string, and
// lands on zero when neither parses.
func statValue(stat statBlock) int {
	if stat.Value != nil {
		return int(*stat.Value)
	}
	display := strings.TrimSpace(stat.DisplayValue)
	if display == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(strings.TrimPrefix(display, "+"), 64); err == nil {
		return int(parsed)
	}
	return 0
}

// payloadChecksum fingerprints the payload independent of key order: the raw
// document is decoded and re-encoded with sorted keys before hashing.
func payloadChecksum(raw []byte) (string, error) {
	var doc any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode for checksum: %w", err)
	}
	canonical, err := sonic.ConfigStd.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("canonicalize for checksum: %w", err)
	}
	sum := sha1.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
