package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	tenantdomain "github.com/duebook/duebook/internal/tenant/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS clients (
		id BIGINT PRIMARY KEY,
		org_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		tax_id TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at TIMESTAMP
	)`).Error)
	return db
}

func TestIsClientActive(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(ServiceParam{DB: db, Log: zaptest.NewLogger(t)})

	require.NoError(t, db.Create(&tenantdomain.Client{
		ID:    1,
		OrgID: 10,
		Name:  "Live Client",
	}).Error)
	require.NoError(t, db.Create(&tenantdomain.Client{
		ID:    2,
		OrgID: 10,
		Name:  "Deleted Client",
	}).Error)
	require.NoError(t, db.Exec(
		`UPDATE clients SET deleted_at = ? WHERE id = ?`, time.Now().UTC(), 2,
	).Error)

	active, err := svc.IsClientActive(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = svc.IsClientActive(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.False(t, active)

	// Unknown clients report inactive rather than erroring.
	active, err = svc.IsClientActive(context.Background(), 10, 99)
	require.NoError(t, err)
	assert.False(t, active)

	// A client from another organization is invisible.
	active, err = svc.IsClientActive(context.Background(), 11, 1)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestGetClient(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(ServiceParam{DB: db, Log: zaptest.NewLogger(t)})

	require.NoError(t, db.Create(&tenantdomain.Client{
		ID:    1,
		OrgID: 10,
		Name:  "Live Client",
	}).Error)

	client, err := svc.GetClient(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "Live Client", client.Name)

	_, err = svc.GetClient(context.Background(), 10, 99)
	assert.ErrorIs(t, err, tenantdomain.ErrClientNotFound)
}
