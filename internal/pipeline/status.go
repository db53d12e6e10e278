// Package pipeline holds the status lists behind dashboard breakdowns.
//
// Each display list is derived from the lifecycle's active or terminal set, so a
// new status only has to be classified once.
package pipeline

import (
	"github.com/ecoroute/crm-api/internal/domain"
)

// ProposalLifecycle is every proposal status in workflow order
func ProposalLifecycle() []domain.ProposalStatus {
	return []domain.ProposalStatus{
		domain.ProposalStatusPending,
		domain.ProposalStatusApproved,
		domain.ProposalStatusSent,
		domain.ProposalStatusAccepted,
		domain.ProposalStatusRejected,
	}
}

// ProposalActive are the statuses counted in the active proposal total
func ProposalActive() []domain.ProposalStatus {
	return []domain.ProposalStatus{
		domain.ProposalStatusPending,
		domain.ProposalStatusApproved,
		domain.ProposalStatusSent,
	}
}

// ProposalDisplay is the active set followed by accepted; rejected is hidden
func ProposalDisplay() []domain.ProposalStatus {
	return append(ProposalActive(), domain.ProposalStatusAccepted)
}

// ContractLifecycle is every contract status in workflow order
func ContractLifecycle() []domain.ContractStatus {
	return []domain.ContractStatus{
		domain.ContractStatusPendingRequest,
		domain.ContractStatusRequested,
		domain.ContractStatusReadyForSales,
		domain.ContractStatusSentToSales,
		domain.ContractStatusSentToClient,
		domain.ContractStatusSigned,
		domain.ContractStatusHardboundReceived,
	}
}

// ContractTerminal are the statuses after which a contract is no longer in progress
func ContractTerminal() []domain.ContractStatus {
	return []domain.ContractStatus{
		domain.ContractStatusSigned,
		domain.ContractStatusHardboundReceived,
	}
}

// ContractDisplay is the lifecycle minus the terminal set
func ContractDisplay() []domain.ContractStatus {
	terminal := make(map[domain.ContractStatus]bool)
	for _, s := range ContractTerminal() {
		terminal[s] = true
	}

	var display []domain.ContractStatus
	for _, s := range ContractLifecycle() {
		if !terminal[s] {
			display = append(display, s)
		}
	}
	return display
}

// Breakdown left-joins counts onto the display order, filling missing statuses with zero.
// Counts for statuses outside the display list are ignored.
func Breakdown[S ~string](display []S, counts map[S]int64) []domain.StatusCount {
	result := make([]domain.StatusCount, len(display))
	for i, s := range display {
		result[i] = domain.StatusCount{Status: string(s), Count: counts[s]}
	}
	return result
}
