package mapper_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/ecoroute/crm-api/internal/mapper"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFileDTO(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	file := &domain.File{
		BaseModel:           domain.BaseModel{ID: uuid.New(), CreatedAt: created, UpdatedAt: created},
		EntityType:          domain.FileEntitySignedContract,
		UploadedBy:          uuid.New(),
		RelatedEntityNumber: "CT-2025-0042",
		ClientName:          "Harbor Foods",
		FileName:            "signed.pdf",
		ContentType:         "application/pdf",
		Size:                2048,
		StoragePath:         "contracts/signed.pdf",
	}

	dto := mapper.ToFileDTO(file)

	assert.Equal(t, file.ID, dto.ID)
	assert.Equal(t, file.EntityType, dto.EntityType)
	assert.Equal(t, file.UploadedBy, dto.UploadedBy)
	assert.Equal(t, "CT-2025-0042", dto.RelatedEntityNumber)
	assert.Equal(t, "Harbor Foods", dto.ClientName)
	assert.Equal(t, "signed.pdf", dto.FileName)
	assert.Equal(t, int64(2048), dto.Size)
	assert.Equal(t, "2025-03-14T09:30:00.000Z", dto.CreatedAt)
}

func TestToFileDTOs_EmptyIsNotNil(t *testing.T) {
	dtos := mapper.ToFileDTOs(nil)
	require.NotNil(t, dtos)

	data, err := json.Marshal(dtos)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestToActivityDTO_ConvertsToUTC(t *testing.T) {
	oslo := time.FixedZone("CET", 3600)
	entry := &domain.ActivityLog{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Action:     domain.ActivityActionFileDownloaded,
		EntityType: "file",
		EntityID:   uuid.New(),
		CreatedAt:  time.Date(2025, 1, 2, 1, 0, 0, 0, oslo),
	}

	dto := mapper.ToActivityDTO(entry)

	assert.Equal(t, domain.ActivityActionFileDownloaded, dto.Action)
	assert.Equal(t, "2025-01-02T00:00:00.000Z", dto.CreatedAt)
}

func TestToProposalDTO_DecodesPayload(t *testing.T) {
	raw, err := domain.EncodeProposalData(domain.ProposalData{
		Version:         domain.ProposalDataVersion,
		ServiceType:     "front_load",
		PickupFrequency: "weekly",
		MonthlyRate:     420,
		TermMonths:      12,
	})
	require.NoError(t, err)

	proposal := &domain.Proposal{
		BaseModel:      domain.BaseModel{ID: uuid.New()},
		ProposalNumber: "PR-1",
		Status:         domain.ProposalStatusSent,
		ProposalData:   raw,
	}

	dto := mapper.ToProposalDTO(proposal)
	data, ok := dto.Data.Value()
	require.True(t, ok)
	assert.Equal(t, "front_load", data.ServiceType)
	assert.Equal(t, 12, data.TermMonths)
}

func TestToContractDTO_MalformedPayloadIsSurfaced(t *testing.T) {
	contract := &domain.Contract{
		BaseModel:      domain.BaseModel{ID: uuid.New()},
		ContractNumber: "CT-1",
		Status:         domain.ContractStatusRequested,
		ContractData:   "{not json",
	}

	dto := mapper.ToContractDTO(contract)
	assert.True(t, dto.Data.Malformed())
	assert.Equal(t, "{not json", dto.Data.Raw())

	body, err := json.Marshal(dto)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"contractData":{"status":"malformed","raw":"{not json"}`)
}
