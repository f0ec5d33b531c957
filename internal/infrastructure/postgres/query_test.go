package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoma-opportunity/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func buildSQL(t *testing.T, q domain.OpportunityQuery) (string, []interface{}) {
	t.Helper()
	var rows []opportunityRow
	stmt := applyOrder(applyQuery(dryRunDB(t), &q), &q).Find(&rows).Statement
	return stmt.SQL.String(), stmt.Vars
}

func TestApplyQuery_JoinsOrganizationsOnly(t *testing.T) {
	sql, vars := buildSQL(t, domain.OpportunityQuery{})
	assert.Contains(t, sql, `FROM "opportunities" JOIN organizations ON organizations.id = opportunities.organization_id`)
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, vars)
}

func TestApplyQuery_EmptyOpportunitiesMatchesNothing(t *testing.T) {
	sql, _ := buildSQL(t, domain.OpportunityQuery{Opportunities: []string{}})
	assert.Contains(t, sql, "1 = 0")

	sql, _ = buildSQL(t, domain.OpportunityQuery{Opportunities: nil})
	assert.NotContains(t, sql, "1 = 0")
}

func TestApplyQuery_EmptyPublishedStatesMatchesNothing(t *testing.T) {
	sql, _ := buildSQL(t, domain.OpportunityQuery{PublishedStates: []domain.PublishedState{}})
	assert.Contains(t, sql, "1 = 0")
}

func TestApplyQuery_PublishedStatesOred(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sql, vars := buildSQL(t, domain.OpportunityQuery{
		PublishedStates: []domain.PublishedState{domain.PublishedStateNotStarted, domain.PublishedStateExpired},
		ActiveStatusID:  "active",
		ExpiredStatusID: "expired",
		Now:             now,
	})
	assert.Contains(t, sql, "organizations.status = $1")
	assert.Contains(t, sql, "((opportunities.status_id = $2 AND opportunities.date_start > $3) OR opportunities.status_id = $4)")
	assert.Equal(t, []interface{}{"Active", "active", now, "expired"}, vars)
}

func TestApplyQuery_PublishedIncludesExpired(t *testing.T) {
	sql, vars := buildSQL(t, domain.OpportunityQuery{
		Published:       true,
		IncludeExpired:  true,
		ActiveStatusID:  "active",
		ExpiredStatusID: "expired",
	})
	assert.Contains(t, sql, "opportunities.status_id IN ($1,$2) AND organizations.status = $3")
	assert.Equal(t, []interface{}{"active", "expired", "Active"}, vars)
}

func TestApplyQuery_AssociationsUseExists(t *testing.T) {
	sql, _ := buildSQL(t, domain.OpportunityQuery{
		Categories: []string{"c1"},
		Countries:  []string{"za"},
		Languages:  []string{"en"},
	})
	assert.Contains(t, sql, "EXISTS (SELECT 1 FROM opportunity_categories a WHERE a.opportunity_id = opportunities.id AND a.category_id IN ($1))")
	assert.Contains(t, sql, "opportunity_languages")
	assert.Contains(t, sql, "opportunity_countries")
}

func TestApplyQuery_CommitmentAndRewards(t *testing.T) {
	max := int64(120)
	sql, _ := buildSQL(t, domain.OpportunityQuery{
		CommitmentOptions: []domain.CommitmentOption{
			{Count: 1, IntervalID: "hour"},
			{Count: 2, IntervalID: "hour"},
		},
		CommitmentUnits:      []domain.CommitmentUnit{{IntervalID: "hour", Minutes: 60}, {IntervalID: "day", Minutes: 1440}},
		CommitmentMaxMinutes: &max,
		ZltoRanges:           []domain.ZltoRange{{From: 0, To: 50}, {From: 50, To: 100}},
		HasZltoReward:        true,
	})
	assert.Contains(t, sql, "opportunities.commitment_interval_id IN ($1) AND opportunities.commitment_interval_count IN ($2,$3)")
	assert.Contains(t, sql, "opportunities.commitment_interval_count * $5 <= $6")
	assert.Contains(t, sql, "opportunities.zlto_reward IS NOT NULL")
	assert.Contains(t, sql, "(opportunities.zlto_reward BETWEEN $10 AND $11 OR opportunities.zlto_reward BETWEEN $12 AND $13)")
	assert.Contains(t, sql, "opportunities.zlto_reward > 0")
}

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, "%clean%", containsPattern("clean"))
	assert.Equal(t, `%100\%%`, containsPattern("100%"))
	assert.Equal(t, `%a\_b%`, containsPattern("a_b"))
	assert.Equal(t, `%c:\\d%`, containsPattern(`c:\d`))
}

func TestApplyQuery_ValueContainsWildcardsLiteral(t *testing.T) {
	_, vars := buildSQL(t, domain.OpportunityQuery{ValueContains: "50%_off"})
	assert.Contains(t, vars, `%50\%\_off%`)
}

func TestForUpdate_LocksRows(t *testing.T) {
	var row organizationRow
	stmt := forUpdate(dryRunDB(t)).Where("id = ?", "org-1").First(&row).Statement
	assert.True(t, strings.HasSuffix(strings.TrimSpace(stmt.SQL.String()), "FOR UPDATE"), stmt.SQL.String())
}

func TestApplyQuery_ValueContainsOrsMatches(t *testing.T) {
	sql, vars := buildSQL(t, domain.OpportunityQuery{
		ValueContains:        "clean",
		MatchOrganizationIDs: []string{"org1"},
		MatchSkillIDs:        []string{"s1"},
	})
	assert.Contains(t, sql, "(opportunities.organization_id IN ($1) OR opportunities.title ILIKE $2")
	assert.Contains(t, sql, "OR EXISTS (SELECT 1 FROM opportunity_skills a")
	assert.Contains(t, vars, "%clean%")
}

func TestApplyQuery_FlagsAndDates(t *testing.T) {
	featured, hidden := true, false
	start := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	sql, vars := buildSQL(t, domain.OpportunityQuery{
		StartDate:         &start,
		EndDate:           &start,
		Featured:          &featured,
		ShareWithPartners: true,
		Hidden:            &hidden,
		EngagementTypes:   []string{"online"},
	})
	assert.Contains(t, sql, "opportunities.date_start >= $1")
	assert.Contains(t, sql, "opportunities.date_end <= $2")
	assert.Contains(t, sql, "(opportunities.engagement_type_id IS NULL OR opportunities.engagement_type_id IN ($3))")
	assert.Contains(t, sql, "opportunities.featured = $4")
	assert.Contains(t, sql, "COALESCE(opportunities.hidden, false) = $6")
	assert.Equal(t, domain.RemoveTime(start), vars[0])
	assert.Equal(t, domain.ToEndOfDay(start), vars[1])
}

func TestApplyOrder_AggregatedIDsFirst(t *testing.T) {
	sql, _ := buildSQL(t, domain.OpportunityQuery{
		OrderByIDs: []string{"b", "a"},
		OrderInstructions: []domain.OrderInstruction{
			{Field: domain.OrderFieldDateStart, Direction: domain.OrderingDescending},
			{Field: domain.OrderFieldTitle, Direction: domain.OrderingAscending},
		},
	})
	idx := strings.Index(sql, "ORDER BY")
	require.NotEqual(t, -1, idx)
	assert.Equal(t, "ORDER BY array_position(ARRAY[$1,$2]::text[], opportunities.id::text), opportunities.date_start DESC, opportunities.title ASC", sql[idx:])
}

func TestOpportunityRepo_SearchCountOnly(t *testing.T) {
	repo := NewOpportunityRepo(NewClient(dryRunDB(t)))
	items, total, err := repo.Search(context.Background(), domain.OpportunityQuery{CountOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, items)
}

func TestCountByStatus_GroupsPage(t *testing.T) {
	var rows []struct {
		OpportunityID string
		N             int
	}
	stmt := countByStatus(dryRunDB(t), []string{"o1", "o2"}, domain.MyOpportunityActionVerification, domain.VerificationStatusPending).
		Find(&rows).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "SELECT opportunity_id, COUNT(*) AS n FROM \"my_opportunities\"")
	assert.Contains(t, sql, "opportunity_id IN ($1,$2)")
	assert.Contains(t, sql, "GROUP BY \"opportunity_id\"")
}
