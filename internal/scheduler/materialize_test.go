package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	obligationdomain "github.com/duebook/duebook/internal/obligation/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedClient(t *testing.T, db *gorm.DB, orgID, clientID snowflake.ID, deleted bool) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO clients (id, org_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		clientID, orgID, "Test Client", time.Now().UTC(), time.Now().UTC(),
	).Error)
	if deleted {
		require.NoError(t, db.Exec(
			`UPDATE clients SET deleted_at = ? WHERE id = ?`,
			time.Now().UTC(), clientID,
		).Error)
	}
}

func seedTemplate(t *testing.T, db *gorm.DB, tpl *obligationdomain.Obligation) {
	t.Helper()
	if tpl.Status == "" {
		tpl.Status = obligationdomain.StatusPending
	}
	tpl.IsRecurring = true
	require.NoError(t, db.Create(tpl).Error)
}

func countInstances(t *testing.T, db *gorm.DB, parentID snowflake.ID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&obligationdomain.Obligation{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error)
	return count
}

func TestMaterializeGeneratesInstanceInsideHorizon(t *testing.T) {
	db := newTestDB(t)
	sched, _ := newTestScheduler(t, db, date(2024, time.February, 9))

	node, _ := snowflake.NewNode(2)
	orgID := node.Generate()
	clientID := node.Generate()
	seedClient(t, db, orgID, clientID, false)

	tpl := &obligationdomain.Obligation{
		ID:                  node.Generate(),
		OrgID:               orgID,
		ClientID:            &clientID,
		Title:               "Office rent",
		Amount:              decimal.RequireFromString("1200.00"),
		DueDate:             date(2024, time.January, 15),
		Frequency:           obligationdomain.FrequencyMonthly,
		RecurringDayOfMonth: 15,
	}
	seedTemplate(t, db, tpl)

	report, err := sched.MaterializeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
	assert.Equal(t, 0, report.Failed)

	var instance obligationdomain.Obligation
	require.NoError(t, db.Where("parent_id = ?", tpl.ID).First(&instance).Error)
	assert.Equal(t, date(2024, time.February, 15), instance.DueDate.UTC())
	assert.Equal(t, obligationdomain.StatusPending, instance.Status)
	assert.Equal(t, tpl.Title, instance.Title)
	assert.True(t, tpl.Amount.Equal(instance.Amount))
	assert.Contains(t, instance.Notes, "Generated automatically")
}

func TestMaterializeIsIdempotentAcrossTicks(t *testing.T) {
	db := newTestDB(t)
	sched, _ := newTestScheduler(t, db, date(2024, time.February, 9))

	node, _ := snowflake.NewNode(2)
	orgID := node.Generate()
	clientID := node.Generate()
	seedClient(t, db, orgID, clientID, false)

	tpl := &obligationdomain.Obligation{
		ID:                  node.Generate(),
		OrgID:               orgID,
		ClientID:            &clientID,
		Title:               "Payroll taxes",
		Amount:              decimal.RequireFromString("350.00"),
		DueDate:             date(2024, time.January, 15),
		Frequency:           obligationdomain.FrequencyMonthly,
		RecurringDayOfMonth: 15,
	}
	seedTemplate(t, db, tpl)

	report, err := sched.MaterializeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)

	// Re-running with no intervening state change generates nothing.
	report, err = sched.MaterializeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.EqualValues(t, 1, countInstances(t, db, tpl.ID))
}

func TestMaterializeRespectsHorizon(t *testing.T) {
	db := newTestDB(t)
	sched, fakeClock := newTestScheduler(t, db, date(2024, time.February, 1))

	node, _ := snowflake.NewNode(2)
	orgID := node.Generate()
	clientID := node.Generate()
	seedClient(t, db, orgID, clientID, false)

	// Next occurrence is Feb 15: 14 days out on Feb 1, inside the 7-day
	// window from Feb 9 on.
	tpl := &obligationdomain.Obligation{
		ID:                  node.Generate(),
		OrgID:               orgID,
		ClientID:            &clientID,
		Title:               "VAT installment",
		Amount:              decimal.RequireFromString("980.50"),
		DueDate:             date(2024, time.January, 15),
		Frequency:           obligationdomain.FrequencyMonthly,
		RecurringDayOfMonth: 15,
	}
	seedTemplate(t, db, tpl)

	report, err := sched.MaterializeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.EqualValues(t, 0, countInstances(t, db, tpl.ID))

	fakeClock.Set(date(2024, time.February, 9))
	report, err = sched.MaterializeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
	assert.EqualValues(t, 1, countInstances(t, db, tpl.ID))
}

func TestMaterializeDeactivatesExpiredTemplate(t *testing.T) {
	db := newTestDB(t)
	sched, _ := newTestScheduler(t, db, date(2024, time.February, 9))

	node, _ := snowflake.NewNode(2)
	orgID := node.Generate()
	clientID := node.Generate()
	seedClient(t, db, orgID, clientID, false)

	endDate := date(2024, time.February, 10)
	tpl := &obligationdomain.Obligation{
		ID:                  node.Generate(),
		OrgID:               orgID,
		ClientID:            &clientID,
		Title:               "Lease installment",
		Amount:              decimal.RequireFromString("400.00"),
		DueDate:             date(2024, time.January, 15),
		Frequency:           obligationdomain.FrequencyMonthly,
		RecurringDayOfMonth: 15,
		RecurringEndDate:    &endDate,
	}
	seedTemplate(t, db, tpl)

	report, err := sched.MaterializeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.EqualValues(t, 0, countInstances(t, db, tpl.ID))

	var reloaded obligationdomain.Obligation
	require.NoError(t, db.First(&reloaded, "id = ?", tpl.ID).Error)
	assert.False(t, reloaded.IsRecurring)
}

func TestMaterializeSkipsSoftDeletedClient(t *testing.T) {
	db := newTestDB(t)
	sched, _ := newTestScheduler(t, db, date(2024, time.February, 9))

	node, _ := snowflake.NewNode(2)
	orgID := node.Generate()
	clientID := node.Generate()
	seedClient(t, db, orgID, clientID, true)

	tpl := &obligationdomain.Obligation{
		ID:                  node.Generate(),
		OrgID:               orgID,
		ClientID:            &clientID,
		Title:               "Bookkeeping fee",
		Amount:              decimal.RequireFromString("75.00"),
		DueDate:             date(2024, time.January, 15),
		Frequency:           obligationdomain.FrequencyMonthly,
		RecurringDayOfMonth: 15,
	}
	seedTemplate(t, db, tpl)

	report, err := sched.MaterializeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.EqualValues(t, 0, countInstances(t, db, tpl.ID))

	// The template stays recurring: a restored client resumes generation.
	var reloaded obligationdomain.Obligation
	require.NoError(t, db.First(&reloaded, "id = ?", tpl.ID).Error)
	assert.True(t, reloaded.IsRecurring)
}

func TestMaterializeIsolatesPerTemplateFailures(t *testing.T) {
	db := newTestDB(t)
	sched, _ := newTestScheduler(t, db, date(2024, time.February, 9))

	node, _ := snowflake.NewNode(2)
	orgID := node.Generate()
	clientID := node.Generate()
	seedClient(t, db, orgID, clientID, false)

	broken := &obligationdomain.Obligation{
		ID:                  node.Generate(),
		OrgID:               orgID,
		ClientID:            &clientID,
		Title:               "Broken cadence",
		Amount:              decimal.RequireFromString("10.00"),
		DueDate:             date(2024, time.January, 15),
		Frequency:           obligationdomain.Frequency("WEEKLY"),
		RecurringDayOfMonth: 15,
	}
	seedTemplate(t, db, broken)

	healthy := &obligationdomain.Obligation{
		ID:                  node.Generate(),
		OrgID:               orgID,
		ClientID:            &clientID,
		Title:               "Healthy cadence",
		Amount:              decimal.RequireFromString("20.00"),
		DueDate:             date(2024, time.January, 15),
		Frequency:           obligationdomain.FrequencyMonthly,
		RecurringDayOfMonth: 15,
	}
	seedTemplate(t, db, healthy)

	report, err := sched.MaterializeOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Generated)
	assert.EqualValues(t, 1, countInstances(t, db, healthy.ID))
}

func TestMaterializeDoesNotRegenerateExistingOccurrence(t *testing.T) {
	db := newTestDB(t)
	sched, _ := newTestScheduler(t, db, date(2024, time.February, 9))

	node, _ := snowflake.NewNode(2)
	orgID := node.Generate()
	clientID := node.Generate()
	seedClient(t, db, orgID, clientID, false)

	tpl := &obligationdomain.Obligation{
		ID:                  node.Generate(),
		OrgID:               orgID,
		ClientID:            &clientID,
		Title:               "Insurance premium",
		Amount:              decimal.RequireFromString("55.00"),
		DueDate:             date(2024, time.January, 15),
		Frequency:           obligationdomain.FrequencyMonthly,
		RecurringDayOfMonth: 15,
	}
	seedTemplate(t, db, tpl)

	// An instance for the candidate date already exists, e.g. from an
	// overlapping manual trigger.
	parentID := tpl.ID
	require.NoError(t, db.Create(&obligationdomain.Obligation{
		ID:       node.Generate(),
		OrgID:    orgID,
		ClientID: &clientID,
		Title:    tpl.Title,
		Amount:   tpl.Amount,
		DueDate:  date(2024, time.February, 15),
		ParentID: &parentID,
		Status:   obligationdomain.StatusPending,
	}).Error)

	report, err := sched.MaterializeOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 1, report.Skipped)
	assert.EqualValues(t, 1, countInstances(t, db, tpl.ID))
}

func TestCreateInstanceDuplicateRejectedByUniqueIndex(t *testing.T) {
	db := newTestDB(t)
	_, _ = newTestScheduler(t, db, date(2024, time.February, 9))

	node, _ := snowflake.NewNode(2)
	orgID := node.Generate()
	parentID := node.Generate()

	first := &obligationdomain.Obligation{
		ID:       node.Generate(),
		OrgID:    orgID,
		Title:    "Instance",
		Amount:   decimal.RequireFromString("10.00"),
		DueDate:  date(2024, time.February, 15),
		ParentID: &parentID,
		Status:   obligationdomain.StatusPending,
	}
	require.NoError(t, db.Create(first).Error)

	duplicate := &obligationdomain.Obligation{
		ID:       node.Generate(),
		OrgID:    orgID,
		Title:    "Instance",
		Amount:   decimal.RequireFromString("10.00"),
		DueDate:  date(2024, time.February, 15),
		ParentID: &parentID,
		Status:   obligationdomain.StatusPending,
	}
	assert.Error(t, db.Create(duplicate).Error)
}
