package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Role is the single enumeration of user roles
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleSales       Role = "sales"
	RoleSocialMedia Role = "social_media"
)

// AllRoles returns every role known to the system
func AllRoles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleSales, RoleSocialMedia}
}

// IsValid checks if the Role is a valid enum value
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleSales, RoleSocialMedia:
		return true
	}
	return false
}

// User represents an authenticated staff member
type User struct {
	BaseModel
	Email         string `gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName   string `gorm:"type:varchar(200);not null;column:name"`
	Role          Role   `gorm:"type:varchar(50);not null;index"`
	IsMasterSales bool   `gorm:"not null;default:false;column:is_master_sales"`
	IsActive      bool   `gorm:"not null;column:is_active"`
}

// LeadSource describes where an inquiry came from
type LeadSource string

const (
	LeadSourceWebsite  LeadSource = "website"
	LeadSourceReferral LeadSource = "referral"
	LeadSourcePhone    LeadSource = "phone"
	LeadSourceSocial   LeadSource = "social"
)

// Lead is an inquiry that a sales user may claim
type Lead struct {
	BaseModel
	CompanyName  string     `gorm:"type:varchar(200);not null;column:company_name"`
	ContactName  string     `gorm:"type:varchar(200);column:contact_name"`
	ContactEmail string     `gorm:"type:varchar(255);column:contact_email"`
	Source       LeadSource `gorm:"type:varchar(50);not null;default:'website'"`
	ClaimedBy    *uuid.UUID `gorm:"type:uuid;index;column:claimed_by"`
	ClaimedAt    *time.Time `gorm:"column:claimed_at"`
}

// ProposalStatus represents the status of a proposal
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusSent     ProposalStatus = "sent"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// IsValid checks if the ProposalStatus is a valid enum value
func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusApproved, ProposalStatusSent,
		ProposalStatusAccepted, ProposalStatusRejected:
		return true
	}
	return false
}

// Proposal is a priced service offer requested by a sales user
type Proposal struct {
	BaseModel
	ProposalNumber string         `gorm:"type:varchar(50);not null;uniqueIndex;column:proposal_number"`
	ClientName     string         `gorm:"type:varchar(200);not null;column:client_name"`
	LeadID         *uuid.UUID     `gorm:"type:uuid;column:lead_id"`
	RequestedBy    uuid.UUID      `gorm:"type:uuid;not null;index;column:requested_by"`
	Status         ProposalStatus `gorm:"type:varchar(50);not null;default:'pending';index"`
	ProposalData   string         `gorm:"type:text;column:proposal_data"`
}

// ContractStatus represents the status of a contract
type ContractStatus string

const (
	ContractStatusPendingRequest    ContractStatus = "pending_request"
	ContractStatusRequested         ContractStatus = "requested"
	ContractStatusReadyForSales     ContractStatus = "ready_for_sales"
	ContractStatusSentToSales       ContractStatus = "sent_to_sales"
	ContractStatusSentToClient      ContractStatus = "sent_to_client"
	ContractStatusSigned            ContractStatus = "signed"
	ContractStatusHardboundReceived ContractStatus = "hardbound_received"
)

// IsValid checks if the ContractStatus is a valid enum value
func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractStatusPendingRequest, ContractStatusRequested, ContractStatusReadyForSales,
		ContractStatusSentToSales, ContractStatusSentToClient, ContractStatusSigned,
		ContractStatusHardboundReceived:
		return true
	}
	return false
}

// Contract is the agreement produced from an accepted proposal
type Contract struct {
	BaseModel
	ContractNumber string         `gorm:"type:varchar(50);not null;uniqueIndex;column:contract_number"`
	ProposalID     *uuid.UUID     `gorm:"type:uuid;column:proposal_id"`
	ClientName     string         `gorm:"type:varchar(200);not null;column:client_name"`
	RequestedBy    uuid.UUID      `gorm:"type:uuid;not null;index;column:requested_by"`
	Status         ContractStatus `gorm:"type:varchar(50);not null;default:'pending_request';index"`
	ContractData   string         `gorm:"type:text;column:contract_data"`
}

// Client is a signed customer of the company
type Client struct {
	BaseModel
	Name           string    `gorm:"type:varchar(200);not null;index"`
	Email          string    `gorm:"type:varchar(255)"`
	Phone          string    `gorm:"type:varchar(50)"`
	Address        string    `gorm:"type:varchar(500)"`
	AccountManager uuid.UUID `gorm:"type:uuid;not null;index;column:account_manager"`
}

// FileEntityType is the category a stored file belongs to
type FileEntityType string

const (
	FileEntityProposal          FileEntityType = "proposal"
	FileEntityContract          FileEntityType = "contract"
	FileEntitySignedContract    FileEntityType = "signed_contract"
	FileEntityHardboundContract FileEntityType = "hardbound_contract"
	FileEntityCustomTemplate    FileEntityType = "custom_template"
	FileEntityClientDocument    FileEntityType = "client_document"
	FileEntityMarketingAsset    FileEntityType = "marketing_asset"
)

// AllFileEntityTypes returns every file category in display order
func AllFileEntityTypes() []FileEntityType {
	return []FileEntityType{
		FileEntityProposal,
		FileEntityContract,
		FileEntitySignedContract,
		FileEntityHardboundContract,
		FileEntityCustomTemplate,
		FileEntityClientDocument,
		FileEntityMarketingAsset,
	}
}

// IsValid checks if the FileEntityType is a valid enum value
func (t FileEntityType) IsValid() bool {
	for _, v := range AllFileEntityTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// File represents an uploaded document held in object storage
type File struct {
	BaseModel
	EntityType          FileEntityType `gorm:"type:varchar(50);not null;index;column:entity_type"`
	UploadedBy          uuid.UUID      `gorm:"type:uuid;not null;index;column:uploaded_by"`
	RelatedEntityNumber string         `gorm:"type:varchar(50);column:related_entity_number"`
	ClientName          string         `gorm:"type:varchar(200);column:client_name"`
	FileName            string         `gorm:"type:varchar(255);not null;column:file_name"`
	ContentType         string         `gorm:"type:varchar(100);column:content_type"`
	Size                int64          `gorm:"not null;default:0"`
	StoragePath         string         `gorm:"type:varchar(500);not null;uniqueIndex;column:storage_path"`
}

// EventStatus represents the status of a calendar event
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// CalendarEvent is a meeting or site visit owned by a user
type CalendarEvent struct {
	BaseModel
	UserID        uuid.UUID   `gorm:"type:uuid;not null;index;column:user_id"`
	Title         string      `gorm:"type:varchar(200);not null"`
	Location      string      `gorm:"type:varchar(300)"`
	Status        EventStatus `gorm:"type:varchar(50);not null;default:'scheduled'"`
	ScheduledDate time.Time   `gorm:"not null;index;column:scheduled_date"`
}

// ActivityAction names what happened in an activity log entry
type ActivityAction string

const (
	ActivityActionFileDownloaded ActivityAction = "file_downloaded"
	ActivityActionFileViewed     ActivityAction = "file_viewed"
	ActivityActionProposalViewed ActivityAction = "proposal_viewed"
	ActivityActionContractViewed ActivityAction = "contract_viewed"
)

// ActivityLog is an append-only record of a user action
type ActivityLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id"`
	Action     ActivityAction `gorm:"type:varchar(100);not null"`
	EntityType string         `gorm:"type:varchar(50);not null;column:entity_type"`
	EntityID   uuid.UUID      `gorm:"type:uuid;column:entity_id"`
	Details    string         `gorm:"type:varchar(1000)"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}

// BeforeCreate assigns a UUID when the caller did not set one
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Principal is the authenticated actor a request is evaluated for
type Principal struct {
	ID            uuid.UUID
	Role          Role
	IsMasterSales bool
}
