package domain

import (
	"github.com/google/uuid"
)

// DTOs for API responses

type FileDTO struct {
	ID                  uuid.UUID      `json:"id"`
	EntityType          FileEntityType `json:"entityType"`
	UploadedBy          uuid.UUID      `json:"uploadedBy"`
	RelatedEntityNumber string         `json:"relatedEntityNumber,omitempty"`
	ClientName          string         `json:"clientName,omitempty"`
	FileName            string         `json:"fileName"`
	ContentType         string         `json:"contentType,omitempty"`
	Size                int64          `json:"size"`
	CreatedAt           string         `json:"createdAt"` // ISO 8601
}

// FileFacets holds per-category counts computed without the entityType filter
type FileFacets struct {
	EntityType map[FileEntityType]int64 `json:"entityType"`
}

// FileListResponse is the body returned by GET /files
type FileListResponse struct {
	Success    bool       `json:"success"`
	Data       []FileDTO  `json:"data"`
	Pagination Pagination `json:"pagination"`
	Facets     FileFacets `json:"facets"`
}

// DownloadURLDTO is a time-limited link to a stored file
type DownloadURLDTO struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expiresIn"`
	FileName  string `json:"fileName"`
}

// Pagination describes the page returned out of a filtered total
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// Dashboard DTOs

// DashboardStats holds the headline counters for the signed-in user
type DashboardStats struct {
	Leads             int64 `json:"leads"`
	ActiveProposals   int64 `json:"activeProposals"`
	ActiveContracts   int64 `json:"activeContracts"`
	Clients           int64 `json:"clients"`
	UpcomingEvents    int   `json:"upcomingEvents"`
	RecentActivityLen int   `json:"recentActivity"`
}

// StatusCount is one row of a status breakdown
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DashboardPipeline groups the status breakdowns shown on the dashboard
type DashboardPipeline struct {
	Leads     []StatusCount `json:"leads"`
	Proposals []StatusCount `json:"proposals"`
	Contracts []StatusCount `json:"contracts"`
}

type CalendarEventDTO struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Location      string      `json:"location,omitempty"`
	Status        EventStatus `json:"status"`
	ScheduledDate string      `json:"scheduledDate"` // ISO 8601
}

type ActivityDTO struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	Action     ActivityAction `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   uuid.UUID      `json:"entityId"`
	Details    string         `json:"details,omitempty"`
	CreatedAt  string         `json:"createdAt"` // ISO 8601
}

// DashboardReport is the aggregate computed per request for GET /dashboard
type DashboardReport struct {
	Stats          DashboardStats     `json:"stats"`
	Pipeline       DashboardPipeline  `json:"pipeline"`
	UpcomingEvents []CalendarEventDTO `json:"upcomingEvents"`
	RecentActivity []ActivityDTO      `json:"recentActivity"`
}

// Pipeline record DTOs

type ProposalDTO struct {
	ID             uuid.UUID                 `json:"id"`
	ProposalNumber string                    `json:"proposalNumber"`
	ClientName     string                    `json:"clientName"`
	LeadID         *uuid.UUID                `json:"leadId,omitempty"`
	RequestedBy    uuid.UUID                 `json:"requestedBy"`
	Status         ProposalStatus            `json:"status"`
	Data           ParseResult[ProposalData] `json:"proposalData"`
	CreatedAt      string                    `json:"createdAt"` // ISO 8601
	UpdatedAt      string                    `json:"updatedAt"` // ISO 8601
}

type ContractDTO struct {
	ID             uuid.UUID                 `json:"id"`
	ContractNumber string                    `json:"contractNumber"`
	ProposalID     *uuid.UUID                `json:"proposalId,omitempty"`
	ClientName     string                    `json:"clientName"`
	RequestedBy    uuid.UUID                 `json:"requestedBy"`
	Status         ContractStatus            `json:"status"`
	Data           ParseResult[ContractData] `json:"contractData"`
	CreatedAt      string                    `json:"createdAt"` // ISO 8601
	UpdatedAt      string                    `json:"updatedAt"` // ISO 8601
}

// API Response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}
