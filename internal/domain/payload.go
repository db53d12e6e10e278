package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Current versions of the JSON payloads stored in text columns
const (
	ProposalDataVersion = 1
	ContractDataVersion = 1
)

var payloadValidate = validator.New()

// ErrPayloadVersion is returned when a stored payload carries an unknown version
var ErrPayloadVersion = errors.New("unsupported payload version")

// ProposalData is the typed payload stored in proposals.proposal_data
type ProposalData struct {
	Version         int     `json:"version" validate:"required"`
	ServiceType     string  `json:"serviceType" validate:"required,oneof=roll_off front_load compactor recycling organics"`
	ContainerSize   string  `json:"containerSize,omitempty" validate:"max=50"`
	PickupFrequency string  `json:"pickupFrequency" validate:"required,oneof=daily weekly biweekly monthly on_call"`
	MonthlyRate     float64 `json:"monthlyRate" validate:"gte=0"`
	TermMonths      int     `json:"termMonths" validate:"gte=1,lte=120"`
	Notes           string  `json:"notes,omitempty" validate:"max=2000"`
}

func (p ProposalData) payloadVersion() int { return p.Version }

// ContractData is the typed payload stored in contracts.contract_data
type ContractData struct {
	Version     int     `json:"version" validate:"required"`
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	TermMonths  int     `json:"termMonths" validate:"gte=1,lte=120"`
	MonthlyRate float64 `json:"monthlyRate" validate:"gte=0"`
	SignerName  string  `json:"signerName,omitempty" validate:"max=200"`
	SignerEmail string  `json:"signerEmail,omitempty" validate:"omitempty,email"`
}

func (c ContractData) payloadVersion() int { return c.Version }

type versioned interface {
	payloadVersion() int
}

type parseState int

const (
	parseMissing parseState = iota
	parseOK
	parseMalformed
)

// ParseResult is the outcome of decoding a stored payload.
// Exactly one of Ok, Malformed or Missing holds.
type ParseResult[T any] struct {
	state parseState
	value T
	raw   string
	err   error
}

// Value returns the decoded payload and whether decoding succeeded
func (r ParseResult[T]) Value() (T, bool) {
	return r.value, r.state == parseOK
}

// Ok reports whether the payload decoded cleanly
func (r ParseResult[T]) Ok() bool { return r.state == parseOK }

// Malformed reports whether a stored payload could not be decoded
func (r ParseResult[T]) Malformed() bool { return r.state == parseMalformed }

// Missing reports whether no payload was stored
func (r ParseResult[T]) Missing() bool { return r.state == parseMissing }

// Raw returns the stored text for malformed payloads
func (r ParseResult[T]) Raw() string { return r.raw }

// Err returns the decode error for malformed payloads
func (r ParseResult[T]) Err() error { return r.err }

// MarshalJSON renders the result as a tagged object
func (r ParseResult[T]) MarshalJSON() ([]byte, error) {
	switch r.state {
	case parseOK:
		return json.Marshal(struct {
			Status string `json:"status"`
			Data   T      `json:"data"`
		}{"ok", r.value})
	case parseMalformed:
		return json.Marshal(struct {
			Status string `json:"status"`
			Raw    string `json:"raw"`
		}{"malformed", r.raw})
	default:
		return json.Marshal(struct {
			Status string `json:"status"`
		}{"missing"})
	}
}

func decodePayload[T versioned](raw string, version int) ParseResult[T] {
	if strings.TrimSpace(raw) == "" {
		return ParseResult[T]{state: parseMissing}
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return ParseResult[T]{state: parseMalformed, raw: raw, err: err}
	}
	if v.payloadVersion() != version {
		return ParseResult[T]{
			state: parseMalformed,
			raw:   raw,
			err:   fmt.Errorf("%w: %d", ErrPayloadVersion, v.payloadVersion()),
		}
	}
	return ParseResult[T]{state: parseOK, value: v}
}

func encodePayload(v versioned, version int) (string, error) {
	if v.payloadVersion() != version {
		return "", fmt.Errorf("%w: %d", ErrPayloadVersion, v.payloadVersion())
	}
	if err := payloadValidate.Struct(v); err != nil {
		return "", err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeProposalData decodes proposals.proposal_data
func DecodeProposalData(raw string) ParseResult[ProposalData] {
	return decodePayload[ProposalData](raw, ProposalDataVersion)
}

// EncodeProposalData validates and serializes a proposal payload for storage
func EncodeProposalData(data ProposalData) (string, error) {
	return encodePayload(data, ProposalDataVersion)
}

// DecodeContractData decodes contracts.contract_data
func DecodeContractData(raw string) ParseResult[ContractData] {
	return decodePayload[ContractData](raw, ContractDataVersion)
}

// EncodeContractData validates and serializes a contract payload for storage
func EncodeContractData(data ContractData) (string, error) {
	return encodePayload(data, ContractDataVersion)
}
