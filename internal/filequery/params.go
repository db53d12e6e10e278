// Package filequery turns file-list query strings into list, count and facet queries
// that share one base predicate.
package filequery

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit within an int32 offset for every allowed limit
	MaxPage = math.MaxInt32/MaxLimit + 1
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// Params is a parsed and validated file-list request
type Params struct {
	EntityTypes []domain.FileEntityType
	Search      string
	Page        int
	Limit       int
	DateFrom    *time.Time
	DateTo      *time.Time
}

// Offset returns the number of rows skipped before the requested page
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

type rawParams struct {
	EntityType []string `validate:"dive,oneof=proposal contract signed_contract hardbound_contract custom_template client_document marketing_asset"`
	Search     string   `validate:"max=200"`
	DateFrom   string   `validate:"omitempty,datetime=2006-01-02"`
	DateTo     string   `validate:"omitempty,datetime=2006-01-02"`
}

// ParseParams reads entityType, search, page, limit, dateFrom and dateTo.
// Absent or non-numeric page and limit fall back to 1 and 10; page is capped
// at MaxPage and limit at MaxLimit. Validation
// failures are returned as validator.ValidationErrors.
func ParseParams(q url.Values) (Params, error) {
	raw := rawParams{
		EntityType: splitEntityTypes(q["entityType"]),
		Search:     strings.TrimSpace(q.Get("search")),
		DateFrom:   strings.TrimSpace(q.Get("dateFrom")),
		DateTo:     strings.TrimSpace(q.Get("dateTo")),
	}
	if err := validate.Struct(raw); err != nil {
		return Params{}, err
	}

	params := Params{
		Search: raw.Search,
		Page:   intOrDefault(q.Get("page"), DefaultPage),
		Limit:  intOrDefault(q.Get("limit"), DefaultLimit),
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}
	// Pages past the data come back empty; the cap only stops the offset overflowing
	if params.Page > MaxPage {
		params.Page = MaxPage
	}

	for _, et := range raw.EntityType {
		params.EntityTypes = append(params.EntityTypes, domain.FileEntityType(et))
	}

	if raw.DateFrom != "" {
		from, _ := time.Parse(dateLayout, raw.DateFrom)
		params.DateFrom = &from
	}
	if raw.DateTo != "" {
		to, _ := time.Parse(dateLayout, raw.DateTo)
		to = to.Add(24*time.Hour - time.Millisecond)
		params.DateTo = &to
	}

	return params, nil
}

// splitEntityTypes flattens repeated and comma-separated values, dropping blanks and duplicates
func splitEntityTypes(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

func intOrDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// TotalPages is ceil(total/limit), never less than one
func TotalPages(total int64, limit int) int {
	if limit < 1 || total <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
