package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/mapper"
	"github.com/ecoroute/crm-api/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRecordListLimit caps the proposal and contract list endpoints
const DefaultRecordListLimit = 50

type ProposalReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)
	ListVisible(ctx context.Context, access policy.RecordAccess, limit int) ([]domain.Proposal, error)
}

type ContractReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
	ListVisible(ctx context.Context, access policy.RecordAccess, limit int) ([]domain.Contract, error)
}

// PipelineService reads proposals and contracts under record-level visibility
type PipelineService struct {
	proposals ProposalReader
	contracts ContractReader
	activity  ActivityRecorder
	logger    *zap.Logger
}

func NewPipelineService(proposals ProposalReader, contracts ContractReader, activity ActivityRecorder, logger *zap.Logger) *PipelineService {
	return &PipelineService{
		proposals: proposals,
		contracts: contracts,
		activity:  activity,
		logger:    logger,
	}
}

// GetProposal returns a proposal with its decoded payload
func (s *PipelineService) GetProposal(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.ProposalDTO, error) {
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	if err := policy.ResolveRecordAccess(principal).Authorize(proposal.RequestedBy); err != nil {
		return nil, ErrAccessDenied
	}

	dto := mapper.ToProposalDTO(proposal)
	if dto.Data.Malformed() {
		s.logger.Warn("proposal has malformed payload",
			zap.String("proposal_id", id.String()),
			zap.Error(dto.Data.Err()))
	}

	s.activity.Record(domain.ActivityLog{
		UserID:     principal.ID,
		Action:     domain.ActivityActionProposalViewed,
		EntityType: "proposal",
		EntityID:   proposal.ID,
		Details:    proposal.ProposalNumber,
	})
	return &dto, nil
}

// GetContract returns a contract with its decoded payload
func (s *PipelineService) GetContract(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.ContractDTO, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	if err := policy.ResolveRecordAccess(principal).Authorize(contract.RequestedBy); err != nil {
		return nil, ErrAccessDenied
	}

	dto := mapper.ToContractDTO(contract)
	if dto.Data.Malformed() {
		s.logger.Warn("contract has malformed payload",
			zap.String("contract_id", id.String()),
			zap.Error(dto.Data.Err()))
	}

	s.activity.Record(domain.ActivityLog{
		UserID:     principal.ID,
		Action:     domain.ActivityActionContractViewed,
		EntityType: "contract",
		EntityID:   contract.ID,
		Details:    contract.ContractNumber,
	})
	return &dto, nil
}

// ListProposals returns the newest proposals visible to the principal.
// A denied role gets an empty list.
func (s *PipelineService) ListProposals(ctx context.Context, principal domain.Principal) ([]domain.ProposalDTO, error) {
	proposals, err := s.proposals.ListVisible(ctx, policy.ResolveRecordAccess(principal), DefaultRecordListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}

	dtos := make([]domain.ProposalDTO, len(proposals))
	for i := range proposals {
		dtos[i] = mapper.ToProposalDTO(&proposals[i])
	}
	return dtos, nil
}

// ListContracts returns the newest contracts visible to the principal
func (s *PipelineService) ListContracts(ctx context.Context, principal domain.Principal) ([]domain.ContractDTO, error) {
	contracts, err := s.contracts.ListVisible(ctx, policy.ResolveRecordAccess(principal), DefaultRecordListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	dtos := make([]domain.ContractDTO, len(contracts))
	for i := range contracts {
		dtos[i] = mapper.ToContractDTO(&contracts[i])
	}
	return dtos, nil
}
