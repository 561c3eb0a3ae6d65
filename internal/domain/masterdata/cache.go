package masterdata

import (
	"context"
	"log/slog"
	"strings"
)

// Default business units used when the business_units table is missing or
// empty. Kept small on purpose; real units come from the database.
var defaultBusinessUnits = []string{"Nivea", "Derma", "Health Care"}

// MasterData is a point-in-time snapshot of all reference entities needed
// during an import session. It is read-only once loaded; a session that
// outlives database changes simply sees stale data.
type MasterData struct {
	Countries      []Entity            `json:"countries"`
	Categories     []Entity            `json:"categories"`
	Ranges         []Entity            `json:"ranges"`
	MediaTypes     []Entity            `json:"mediaTypes"`
	MediaSubTypes  []SubType           `json:"mediaSubTypes"`
	BusinessUnits  []Entity            `json:"businessUnits"`
	PMTypes        []Entity            `json:"pmTypes"`
	Campaigns      []Entity            `json:"campaigns"`
	SubTypesByType map[string][]string `json:"subTypesByType"`
}

// Loader builds MasterData snapshots from a Repository
type Loader struct {
	repo   Repository
	logger *slog.Logger
}

// NewLoader creates a new master-data loader
func NewLoader(repo Repository, logger *slog.Logger) *Loader {
	return &Loader{repo: repo, logger: logger}
}

// Load fetches every reference entity. Each query is best-effort: a failed
// query degrades to an empty list (or hardcoded defaults for business
// units) instead of aborting the whole load. The Row Validator then flags
// unknown values as "not found" rather than the import crashing.
func (l *Loader) Load(ctx context.Context) *MasterData {
	md := &MasterData{}

	md.Countries = l.loadEntities(ctx, "countries", l.repo.ListCountries)
	md.Categories = l.loadEntities(ctx, "categories", l.repo.ListCategories)
	md.Ranges = l.loadEntities(ctx, "ranges", l.repo.ListRanges)
	md.MediaTypes = l.loadEntities(ctx, "media_types", l.repo.ListMediaTypes)
	md.PMTypes = l.loadEntities(ctx, "pm_types", l.repo.ListPMTypes)
	md.Campaigns = l.loadEntities(ctx, "campaigns", l.repo.ListCampaigns)

	subtypes, err := l.repo.ListMediaSubTypes(ctx)
	if err != nil {
		l.logger.Warn("failed to load media subtypes, validation will degrade",
			slog.Any("error", err))
		subtypes = nil
	}
	md.MediaSubTypes = subtypes

	units := l.loadEntities(ctx, "business_units", l.repo.ListBusinessUnits)
	if len(units) == 0 {
		for _, name := range defaultBusinessUnits {
			units = append(units, Entity{Name: name})
		}
	}
	md.BusinessUnits = units

	md.SubTypesByType = buildSubTypeMap(md.MediaTypes, md.MediaSubTypes)

	return md
}

func (l *Loader) loadEntities(ctx context.Context, name string, fetch func(context.Context) ([]Entity, error)) []Entity {
	entities, err := fetch(ctx)
	if err != nil {
		l.logger.Warn("failed to load master data entity, validation will degrade",
			slog.String("entity", name),
			slog.Any("error", err),
		)
		return nil
	}
	return entities
}

// buildSubTypeMap joins subtypes to their parent media type by foreign key.
// All subtypes whose parent type name contains "TV" are additionally folded
// into a synthetic "Traditional" bucket, a historical alias still used by
// planning spreadsheets. The fold is deduplicated.
func buildSubTypeMap(types []Entity, subtypes []SubType) map[string][]string {
	byID := make(map[string]string, len(types))
	for _, t := range types {
		byID[t.ID.String()] = t.Name
	}

	m := make(map[string][]string)
	seen := make(map[string]bool)

	for _, st := range subtypes {
		typeName, ok := byID[st.MediaTypeID.String()]
		if !ok {
			continue
		}
		m[typeName] = append(m[typeName], st.Name)

		if strings.Contains(strings.ToUpper(typeName), "TV") {
			key := "Traditional|" + st.Name
			if !seen[key] {
				seen[key] = true
				m["Traditional"] = append(m["Traditional"], st.Name)
			}
		}
	}

	return m
}

// HasCountry reports whether name exists in the snapshot (exact match)
func (md *MasterData) HasCountry(name string) bool { return hasEntity(md.Countries, name) }

// HasCategory reports whether name exists in the snapshot (exact match)
func (md *MasterData) HasCategory(name string) bool { return hasEntity(md.Categories, name) }

// HasRange reports whether name exists in the snapshot (exact match)
func (md *MasterData) HasRange(name string) bool { return hasEntity(md.Ranges, name) }

// HasMediaType reports whether name exists in the snapshot (exact match)
func (md *MasterData) HasMediaType(name string) bool {
	if hasEntity(md.MediaTypes, name) {
		return true
	}
	_, ok := md.SubTypesByType[name]
	return ok
}

// HasMediaSubType reports whether name exists in the snapshot (exact match)
func (md *MasterData) HasMediaSubType(name string) bool {
	for _, st := range md.MediaSubTypes {
		if st.Name == name {
			return true
		}
	}
	return false
}

// HasBusinessUnit reports whether name exists in the snapshot (exact match)
func (md *MasterData) HasBusinessUnit(name string) bool { return hasEntity(md.BusinessUnits, name) }

// HasPMType reports whether name exists in the snapshot (exact match)
func (md *MasterData) HasPMType(name string) bool { return hasEntity(md.PMTypes, name) }

// HasCampaign reports whether name exists in the snapshot (exact match)
func (md *MasterData) HasCampaign(name string) bool { return hasEntity(md.Campaigns, name) }

func hasEntity(entities []Entity, name string) bool {
	for _, e := range entities {
		if e.Name == name {
			return true
		}
	}
	return false
}
