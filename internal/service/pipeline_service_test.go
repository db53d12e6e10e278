package service_test

import (
	"context"
	"testing"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/repository"
	"github.com/ecoroute/crm-api/internal/service"
	"github.com/ecoroute/crm-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newPipelineService(db *gorm.DB, activity service.ActivityRecorder) *service.PipelineService {
	return service.NewPipelineService(
		repository.NewProposalRepository(db),
		repository.NewContractRepository(db),
		activity,
		zap.NewNop(),
	)
}

func TestPipelineService_GetProposalVisibility(t *testing.T) {
	db := testutil.SetupTestDB(t)
	activity := &recordedActivity{}
	svc := newPipelineService(db, activity)

	owner := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	peer := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	admin := testutil.CreateTestUser(t, db, domain.RoleAdmin, false)
	social := testutil.CreateTestUser(t, db, domain.RoleSocialMedia, false)

	proposal := testutil.CreateTestProposal(t, db, owner.ID, domain.ProposalStatusSent)
	ctx := context.Background()

	dto, err := svc.GetProposal(ctx, principalFor(owner), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.ProposalNumber, dto.ProposalNumber)
	assert.True(t, dto.Data.Missing())

	_, err = svc.GetProposal(ctx, principalFor(admin), proposal.ID)
	assert.NoError(t, err)

	_, err = svc.GetProposal(ctx, principalFor(peer), proposal.ID)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = svc.GetProposal(ctx, principalFor(social), proposal.ID)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = svc.GetProposal(ctx, principalFor(admin), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)

	entries := activity.all()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActivityActionProposalViewed, entries[0].Action)
}

func TestPipelineService_GetContractPayload(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newPipelineService(db, &recordedActivity{})

	owner := testutil.CreateTestUser(t, db, domain.RoleSales, false)

	raw, err := domain.EncodeContractData(domain.ContractData{
		Version:     domain.ContractDataVersion,
		StartDate:   "2025-01-01",
		TermMonths:  36,
		MonthlyRate: 450,
		SignerName:  "Dana Ruiz",
	})
	require.NoError(t, err)

	good := testutil.CreateTestContract(t, db, owner.ID, domain.ContractStatusSentToClient)
	require.NoError(t, db.Model(good).Update("contract_data", raw).Error)

	broken := testutil.CreateTestContract(t, db, owner.ID, domain.ContractStatusSigned)
	require.NoError(t, db.Model(broken).Update("contract_data", "{not json").Error)

	dto, err := svc.GetContract(context.Background(), principalFor(owner), good.ID)
	require.NoError(t, err)
	data, ok := dto.Data.Value()
	require.True(t, ok)
	assert.Equal(t, 36, data.TermMonths)

	dto, err = svc.GetContract(context.Background(), principalFor(owner), broken.ID)
	require.NoError(t, err)
	assert.True(t, dto.Data.Malformed())
	assert.Equal(t, "{not json", dto.Data.Raw())
}

func TestPipelineService_ListScopes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newPipelineService(db, &recordedActivity{})

	sales := testutil.CreateTestUser(t, db, domain.RoleSales, false)
	master := testutil.CreateTestUser(t, db, domain.RoleSales, true)
	social := testutil.CreateTestUser(t, db, domain.RoleSocialMedia, false)

	testutil.CreateTestProposal(t, db, sales.ID, domain.ProposalStatusPending)
	testutil.CreateTestProposal(t, db, master.ID, domain.ProposalStatusPending)
	testutil.CreateTestContract(t, db, sales.ID, domain.ContractStatusRequested)
	ctx := context.Background()

	own, err := svc.ListProposals(ctx, principalFor(sales))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, sales.ID, own[0].RequestedBy)

	all, err := svc.ListProposals(ctx, principalFor(master))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	denied, err := svc.ListProposals(ctx, principalFor(social))
	require.NoError(t, err)
	assert.NotNil(t, denied)
	assert.Empty(t, denied)

	contracts, err := svc.ListContracts(ctx, principalFor(sales))
	require.NoError(t, err)
	assert.Len(t, contracts, 1)
}
