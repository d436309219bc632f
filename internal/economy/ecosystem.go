package economy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/lumen/internal/mastery"
	"github.com/abhisek/lumen/internal/store"
)

// MinPlots is the smallest grid rendered; missing plots are empty.
const MinPlots = 16

// GridWidth is the number of plots per row.
const GridWidth = 4

var buildingNames = [...]string{"Empty Plot", "Cottage", "Workshop", "Academy", "Tower", "Citadel"}

// BuildingName returns the name of a building tier (0-5).
func BuildingName(tier int) string {
	if tier < 0 || tier >= len(buildingNames) {
		return buildingNames[0]
	}
	return buildingNames[tier]
}

// Theme is the visual style for a topic family.
type Theme struct {
	Key    string `json:"key"`
	Color  string `json:"color"`
	Accent string `json:"accent"`
}

// Matched in order against the lower-cased topic.
var themes = []Theme{
	{Key: "accounting", Color: "#3b82f6", Accent: "#2563eb"},
	{Key: "finance", Color: "#f59e0b", Accent: "#d97706"},
	{Key: "management", Color: "#8b5cf6", Accent: "#7c3aed"},
	{Key: "economics", Color: "#ef4444", Accent: "#dc2626"},
	{Key: "operations", Color: "#06b6d4", Accent: "#0891b2"},
	{Key: "marketing", Color: "#ec4899", Accent: "#db2777"},
	{Key: "strategy", Color: "#f97316", Accent: "#ea580c"},
}

var (
	defaultTheme = Theme{Key: "default", Color: "#22c55e", Accent: "#16a34a"}
	emptyTheme   = Theme{Key: "empty", Color: "#94a3b8", Accent: "#64748b"}
)

// ThemeFor picks the theme whose keyword appears in topic.
func ThemeFor(topic string) Theme {
	t := strings.ToLower(topic)
	for _, th := range themes {
		if strings.Contains(t, th.Key) {
			return th
		}
	}
	return defaultTheme
}

// Plot is one cell of the ecosystem grid.
type Plot struct {
	ConceptID    string        `json:"conceptId,omitempty"`
	Name         string        `json:"name"`
	Topic        string        `json:"topic"`
	Theme        Theme         `json:"theme"`
	BuildingTier int           `json:"buildingTier"`
	BuildingName string        `json:"buildingName"`
	Health       int           `json:"health"`
	Decay        mastery.Decay `json:"decay"`
	BloomLevel   int           `json:"bloomLevel"`
	ReviewCount  int           `json:"reviewCount"`
	GridX        int           `json:"gridX"`
	GridY        int           `json:"gridY"`
	Empty        bool          `json:"empty,omitempty"`
}

// Stats are the ecosystem-wide aggregates.
type Stats struct {
	TotalXP           int64    `json:"totalXp"`
	TotalConcepts     int      `json:"totalConcepts"`
	AverageMastery    int      `json:"averageMastery"`
	TotalInteractions int      `json:"totalInteractions"`
	ConceptsAtRisk    int      `json:"conceptsAtRisk"`
	Capital           int64    `json:"capital"`
	VentureLevel      int      `json:"ventureLevel"`
	VentureName       string   `json:"ventureName"`
	NextUpgrade       *Venture `json:"nextUpgrade"`
}

// Ecosystem is the full view returned by GET /ecosystem.
type Ecosystem struct {
	Stats Stats  `json:"stats"`
	Plots []Plot `json:"plots"`
}

// ViewSource is the read-only data the ecosystem view is built from.
type ViewSource interface {
	ListConcepts(ctx context.Context) ([]store.Concept, error)
	InteractionTotals(ctx context.Context) (int, int64, error)
	Resources(ctx context.Context) (*store.PlayerResources, error)
}

// Viewer assembles Ecosystem views.
type Viewer struct {
	src ViewSource
	now func() time.Time
}

// NewViewer creates a Viewer. A nil now uses the wall clock.
func NewViewer(src ViewSource, now func() time.Time) *Viewer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Viewer{src: src, now: now}
}

// Ecosystem loads the current view.
func (v *Viewer) Ecosystem(ctx context.Context) (*Ecosystem, error) {
	concepts, err := v.src.ListConcepts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	count, xp, err := v.src.InteractionTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("interaction totals: %w", err)
	}
	res, err := v.src.Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("resources: %w", err)
	}
	return BuildEcosystem(concepts, count, xp, res, v.now()), nil
}

// BuildEcosystem computes the view from loaded rows. Concepts are laid out
// grouped by topic, strongest first within a topic.
func BuildEcosystem(concepts []store.Concept, interactions int, totalXP int64, res *store.PlayerResources, now time.Time) *Ecosystem {
	sorted := make([]store.Concept, len(concepts))
	copy(sorted, concepts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Topic != sorted[j].Topic {
			return sorted[i].Topic < sorted[j].Topic
		}
		return sorted[i].MasteryScore > sorted[j].MasteryScore
	})

	eco := &Ecosystem{
		Stats: Stats{
			TotalXP:           totalXP,
			TotalConcepts:     len(sorted),
			TotalInteractions: interactions,
			Capital:           res.Capital,
			VentureLevel:      res.VentureLevel,
		},
	}
	if v, ok := VentureAt(res.VentureLevel); ok {
		eco.Stats.VentureName = v.Name
	}
	if next, ok := NextVenture(res.VentureLevel); ok {
		eco.Stats.NextUpgrade = &next
	}

	var masterySum float64
	for i, c := range sorted {
		decay := mastery.Classify(c.LastReviewedAt, now)
		if decay != mastery.DecayHealthy {
			eco.Stats.ConceptsAtRisk++
		}
		masterySum += c.MasteryScore

		tier := 0
		if c.ReviewCount > 0 {
			tier = c.BloomLevel
		}
		eco.Plots = append(eco.Plots, Plot{
			ConceptID:    c.ID,
			Name:         c.Name,
			Topic:        c.Topic,
			Theme:        ThemeFor(c.Topic),
			BuildingTier: tier,
			BuildingName: BuildingName(tier),
			Health:       mastery.Health(c.MasteryScore),
			Decay:        decay,
			BloomLevel:   c.BloomLevel,
			ReviewCount:  c.ReviewCount,
			GridX:        i % GridWidth,
			GridY:        i / GridWidth,
		})
	}
	if len(sorted) > 0 {
		eco.Stats.AverageMastery = int(math.Round(masterySum / float64(len(sorted)) * 100))
	}

	for i := len(eco.Plots); i < MinPlots; i++ {
		eco.Plots = append(eco.Plots, Plot{
			Name:         "Undiscovered",
			Topic:        "Unknown",
			Theme:        emptyTheme,
			BuildingName: BuildingName(0),
			Decay:        mastery.DecayHealthy,
			GridX:        i % GridWidth,
			GridY:        i / GridWidth,
			Empty:        true,
		})
	}
	return eco
}
