package mapper

import (
	"time"

	"github.com/ecoroute/crm-api/internal/domain"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ToFileDTO converts File to FileDTO
func ToFileDTO(file *domain.File) domain.FileDTO {
	return domain.FileDTO{
		ID:                  file.ID,
		EntityType:          file.EntityType,
		UploadedBy:          file.UploadedBy,
		RelatedEntityNumber: file.RelatedEntityNumber,
		ClientName:          file.ClientName,
		FileName:            file.FileName,
		ContentType:         file.ContentType,
		Size:                file.Size,
		CreatedAt:           formatTime(file.CreatedAt),
	}
}

// ToFileDTOs converts a page of files, never returning nil
func ToFileDTOs(files []domain.File) []domain.FileDTO {
	dtos := make([]domain.FileDTO, len(files))
	for i := range files {
		dtos[i] = ToFileDTO(&files[i])
	}
	return dtos
}

// ToCalendarEventDTO converts CalendarEvent to CalendarEventDTO
func ToCalendarEventDTO(event *domain.CalendarEvent) domain.CalendarEventDTO {
	return domain.CalendarEventDTO{
		ID:            event.ID,
		Title:         event.Title,
		Location:      event.Location,
		Status:        event.Status,
		ScheduledDate: formatTime(event.ScheduledDate),
	}
}

// ToActivityDTO converts ActivityLog to ActivityDTO
func ToActivityDTO(entry *domain.ActivityLog) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:         entry.ID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		CreatedAt:  formatTime(entry.CreatedAt),
	}
}

// ToProposalDTO converts Proposal to ProposalDTO, decoding the stored payload
func ToProposalDTO(proposal *domain.Proposal) domain.ProposalDTO {
	return domain.ProposalDTO{
		ID:             proposal.ID,
		ProposalNumber: proposal.ProposalNumber,
		ClientName:     proposal.ClientName,
		LeadID:         proposal.LeadID,
		RequestedBy:    proposal.RequestedBy,
		Status:         proposal.Status,
		Data:           domain.DecodeProposalData(proposal.ProposalData),
		CreatedAt:      formatTime(proposal.CreatedAt),
		UpdatedAt:      formatTime(proposal.UpdatedAt),
	}
}

// ToContractDTO converts Contract to ContractDTO, decoding the stored payload
func ToContractDTO(contract *domain.Contract) domain.ContractDTO {
	return domain.ContractDTO{
		ID:             contract.ID,
		ContractNumber: contract.ContractNumber,
		ProposalID:     contract.ProposalID,
		ClientName:     contract.ClientName,
		RequestedBy:    contract.RequestedBy,
		Status:         contract.Status,
		Data:           domain.DecodeContractData(contract.ContractData),
		CreatedAt:      formatTime(contract.CreatedAt),
		UpdatedAt:      formatTime(contract.UpdatedAt),
	}
}
