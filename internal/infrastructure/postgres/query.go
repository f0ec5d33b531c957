package postgres

import (
	"strings"

	"github.com/yoma-opportunity/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const joinOrganizations = "JOIN organizations ON organizations.id = opportunities.organization_id"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching value anywhere. LIKE
// wildcards in value match literally under the default backslash escape.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

// forUpdate locks the selected rows until the surrounding transaction ends.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// disjunction collects predicates that are ORed into a single WHERE group.
type disjunction struct {
	parts []string
	args  []interface{}
}

func (d *disjunction) add(sql string, args ...interface{}) {
	d.parts = append(d.parts, sql)
	d.args = append(d.args, args...)
}

func (d *disjunction) apply(db *gorm.DB) *gorm.DB {
	if len(d.parts) == 0 {
		return db
	}
	return db.Where("("+strings.Join(d.parts, " OR ")+")", d.args...)
}

func existsAssociation(kind domain.AssociationKind) string {
	t := associationTables[kind]
	return "EXISTS (SELECT 1 FROM " + t.table + " a WHERE a.opportunity_id = opportunities.id AND a." + t.column + " IN ?)"
}

// applyQuery scopes db to the opportunities matching q. Every populated field
// adds one ANDed predicate. Ordering and paging are applied separately so the
// same scope serves counts and aggregates.
func applyQuery(db *gorm.DB, q *domain.OpportunityQuery) *gorm.DB {
	db = db.Model(&opportunityRow{}).Joins(joinOrganizations)

	if q.StartDate != nil {
		db = db.Where("opportunities.date_start >= ?", domain.RemoveTime(*q.StartDate))
	}
	if q.EndDate != nil {
		db = db.Where("opportunities.date_end <= ?", domain.ToEndOfDay(*q.EndDate))
	}
	if len(q.Organizations) > 0 {
		db = db.Where("opportunities.organization_id IN ?", q.Organizations)
	}
	if len(q.Types) > 0 {
		db = db.Where("opportunities.type_id IN ?", q.Types)
	}
	if len(q.Categories) > 0 {
		db = db.Where(existsAssociation(domain.AssociationCategories), q.Categories)
	}
	if len(q.Languages) > 0 {
		db = db.Where(existsAssociation(domain.AssociationLanguages), q.Languages)
	}
	if len(q.Countries) > 0 {
		db = db.Where(existsAssociation(domain.AssociationCountries), q.Countries)
	}

	if q.Published {
		ids := []string{q.ActiveStatusID}
		if q.IncludeExpired {
			ids = append(ids, q.ExpiredStatusID)
		}
		db = db.Where("opportunities.status_id IN ? AND organizations.status = ?", ids, string(domain.OrganizationStatusActive))
	}

	if q.PublishedStates != nil {
		if len(q.PublishedStates) == 0 {
			db = db.Where("1 = 0")
		} else {
			db = db.Where("organizations.status = ?", string(domain.OrganizationStatusActive))
			var states disjunction
			for _, s := range q.PublishedStates {
				switch s {
				case domain.PublishedStateNotStarted:
					states.add("(opportunities.status_id = ? AND opportunities.date_start > ?)", q.ActiveStatusID, q.Now)
				case domain.PublishedStateActive:
					states.add("(opportunities.status_id = ? AND opportunities.date_start <= ?)", q.ActiveStatusID, q.Now)
				case domain.PublishedStateExpired:
					states.add("opportunities.status_id = ?", q.ExpiredStatusID)
				}
			}
			db = states.apply(db)
		}
	}

	if len(q.EngagementTypes) > 0 {
		db = db.Where("(opportunities.engagement_type_id IS NULL OR opportunities.engagement_type_id IN ?)", q.EngagementTypes)
	}
	if len(q.StatusIDs) > 0 {
		db = db.Where("opportunities.status_id IN ?", q.StatusIDs)
	}
	if q.Opportunities != nil {
		if len(q.Opportunities) == 0 {
			db = db.Where("1 = 0")
		} else {
			db = db.Where("opportunities.id IN ?", q.Opportunities)
		}
	}

	if len(q.CommitmentOptions) > 0 {
		var intervals []string
		var counts []int16
		seenInterval := map[string]bool{}
		seenCount := map[int16]bool{}
		for _, o := range q.CommitmentOptions {
			if !seenInterval[o.IntervalID] {
				seenInterval[o.IntervalID] = true
				intervals = append(intervals, o.IntervalID)
			}
			if !seenCount[o.Count] {
				seenCount[o.Count] = true
				counts = append(counts, o.Count)
			}
		}
		db = db.Where("opportunities.commitment_interval_id IN ? AND opportunities.commitment_interval_count IN ?", intervals, counts)
	}
	if q.CommitmentMaxMinutes != nil && len(q.CommitmentUnits) > 0 {
		var units disjunction
		for _, u := range q.CommitmentUnits {
			units.add("(opportunities.commitment_interval_id = ? AND opportunities.commitment_interval_count * ? <= ?)",
				u.IntervalID, u.Minutes, *q.CommitmentMaxMinutes)
		}
		db = units.apply(db)
	}

	if len(q.ZltoRanges) > 0 {
		db = db.Where("opportunities.zlto_reward IS NOT NULL")
		var ranges disjunction
		for _, r := range q.ZltoRanges {
			ranges.add("opportunities.zlto_reward BETWEEN ? AND ?", r.From, r.To)
		}
		db = ranges.apply(db)
	}
	if q.HasZltoReward {
		db = db.Where("opportunities.zlto_reward > 0")
	}

	if q.Featured != nil && *q.Featured {
		db = db.Where("opportunities.featured = ?", true)
	}
	if q.ShareWithPartners {
		db = db.Where("opportunities.share_with_partners = ?", true)
	}
	if q.Hidden != nil {
		db = db.Where("COALESCE(opportunities.hidden, false) = ?", *q.Hidden)
	}

	if q.ValueContains != "" {
		pattern := containsPattern(q.ValueContains)
		var match disjunction
		if len(q.MatchOrganizationIDs) > 0 {
			match.add("opportunities.organization_id IN ?", q.MatchOrganizationIDs)
		}
		if len(q.MatchTypeIDs) > 0 {
			match.add("opportunities.type_id IN ?", q.MatchTypeIDs)
		}
		if len(q.MatchCategoryIDs) > 0 {
			match.add(existsAssociation(domain.AssociationCategories), q.MatchCategoryIDs)
		}
		match.add("opportunities.title ILIKE ? OR opportunities.summary ILIKE ? OR opportunities.keywords ILIKE ?", pattern, pattern, pattern)
		if len(q.MatchSkillIDs) > 0 {
			match.add(existsAssociation(domain.AssociationSkills), q.MatchSkillIDs)
		}
		db = match.apply(db)
	}
	return db
}

var orderColumns = map[string]bool{
	domain.OrderFieldDateStart:    true,
	domain.OrderFieldDateEnd:      true,
	domain.OrderFieldDateCreated:  true,
	domain.OrderFieldDateModified: true,
	domain.OrderFieldTitle:        true,
	domain.OrderFieldID:           true,
}

// applyOrder sorts by the position in OrderByIDs first, then by each
// instruction in turn. gorm keeps a single ORDER BY expression, so the whole
// ordering is rendered as one.
func applyOrder(db *gorm.DB, q *domain.OpportunityQuery) *gorm.DB {
	var parts []string
	var vars []interface{}
	if len(q.OrderByIDs) > 0 {
		parts = append(parts, "array_position(ARRAY[?]::text[], opportunities.id::text)")
		vars = append(vars, q.OrderByIDs)
	}
	for _, o := range q.OrderInstructions {
		if !orderColumns[o.Field] {
			continue
		}
		dir := "ASC"
		if o.Direction == domain.OrderingDescending {
			dir = "DESC"
		}
		parts = append(parts, "opportunities."+o.Field+" "+dir)
	}
	if len(parts) == 0 {
		return db
	}
	return db.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                strings.Join(parts, ", "),
		Vars:               vars,
		WithoutParentheses: true,
	}})
}
