// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// SetupTestDB opens a private in-memory SQLite database with every table migrated.
// A single connection is used so concurrent queries see the same data.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Lead{},
		&domain.Proposal{},
		&domain.Contract{},
		&domain.Client{},
		&domain.File{},
		&domain.CalendarEvent{},
		&domain.ActivityLog{},
	))

	return db
}

// CreateTestUser inserts a user with the given role
func CreateTestUser(t *testing.T, db *gorm.DB, role domain.Role, masterSales bool) *domain.User {
	t.Helper()
	id := uuid.New()
	user := &domain.User{
		BaseModel:     domain.BaseModel{ID: id},
		Email:         id.String()[:8] + "@ecoroute.test",
		DisplayName:   "Test " + string(role),
		Role:          role,
		IsMasterSales: masterSales,
		IsActive:      true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestFile inserts a file record created at the given instant
func CreateTestFile(t *testing.T, db *gorm.DB, et domain.FileEntityType, uploader uuid.UUID, name string, createdAt time.Time) *domain.File {
	t.Helper()
	id := uuid.New()
	f := &domain.File{
		BaseModel:   domain.BaseModel{ID: id, CreatedAt: createdAt.UTC(), UpdatedAt: createdAt.UTC()},
		EntityType:  et,
		UploadedBy:  uploader,
		FileName:    name,
		ContentType: "application/pdf",
		Size:        1024,
		StoragePath: string(et) + "/" + id.String() + ".pdf",
	}
	require.NoError(t, db.Create(f).Error)
	return f
}

// CreateTestProposal inserts a proposal owned by requestedBy
func CreateTestProposal(t *testing.T, db *gorm.DB, requestedBy uuid.UUID, status domain.ProposalStatus) *domain.Proposal {
	t.Helper()
	id := uuid.New()
	p := &domain.Proposal{
		BaseModel:      domain.BaseModel{ID: id},
		ProposalNumber: "PR-" + id.String()[:8],
		ClientName:     "Client " + id.String()[:4],
		RequestedBy:    requestedBy,
		Status:         status,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateTestContract inserts a contract owned by requestedBy
func CreateTestContract(t *testing.T, db *gorm.DB, requestedBy uuid.UUID, status domain.ContractStatus) *domain.Contract {
	t.Helper()
	id := uuid.New()
	c := &domain.Contract{
		BaseModel:      domain.BaseModel{ID: id},
		ContractNumber: "CT-" + id.String()[:8],
		ClientName:     "Client " + id.String()[:4],
		RequestedBy:    requestedBy,
		Status:         status,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateTestLead inserts a lead, claimed when claimedBy is non-nil
func CreateTestLead(t *testing.T, db *gorm.DB, claimedBy *uuid.UUID) *domain.Lead {
	t.Helper()
	lead := &domain.Lead{
		CompanyName: "Lead Co",
		Source:      domain.LeadSourceWebsite,
		ClaimedBy:   claimedBy,
	}
	if claimedBy != nil {
		now := time.Now().UTC()
		lead.ClaimedAt = &now
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

// CreateTestClient inserts a client managed by accountManager
func CreateTestClient(t *testing.T, db *gorm.DB, accountManager uuid.UUID) *domain.Client {
	t.Helper()
	client := &domain.Client{
		Name:           "Client",
		AccountManager: accountManager,
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

// CreateTestEvent inserts a calendar event for userID
func CreateTestEvent(t *testing.T, db *gorm.DB, userID uuid.UUID, status domain.EventStatus, at time.Time) *domain.CalendarEvent {
	t.Helper()
	event := &domain.CalendarEvent{
		UserID:        userID,
		Title:         "Site visit",
		Status:        status,
		ScheduledDate: at.UTC(),
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

// CreateTestActivity inserts an activity log entry for userID
func CreateTestActivity(t *testing.T, db *gorm.DB, userID uuid.UUID, action domain.ActivityAction, at time.Time) *domain.ActivityLog {
	t.Helper()
	entry := &domain.ActivityLog{
		UserID:     userID,
		Action:     action,
		EntityType: "file",
		EntityID:   uuid.New(),
		CreatedAt:  at.UTC(),
	}
	require.NoError(t, db.Create(entry).Error)
	return entry
}
