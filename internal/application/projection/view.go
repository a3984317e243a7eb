package projection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/branch-forms/internal/domain/entity"
	domainwf "github.com/garyjia/branch-forms/internal/domain/workflow"
)

// View names a role-scoped list of records
type View string

const (
	ViewMine     View = "mine"
	ViewPending  View = "pending"
	ViewApproved View = "approved"
	ViewHistory  View = "history"
)

// ParseView resolves a view name, defaulting to ViewMine
func ParseView(name string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(name))); v {
	case "":
		return ViewMine, nil
	case ViewMine, ViewPending, ViewApproved, ViewHistory:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view: %q", name)
	}
}

// Pagination defaults
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query selects one page of a view
type Query struct {
	View   View
	Search string
	Page   int
	Limit  int
}

// Normalize clamps paging values into range
func (q Query) Normalize() Query {
	if q.View == "" {
		q.View = ViewMine
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Page is one page of a projected view
type Page struct {
	Items []*entity.RequestRecord `json:"items"`
	Total int                     `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

// Authorizer is the part of the gate a projection needs
type Authorizer interface {
	CanAct(role domainwf.Role, t entity.RequestType, from domainwf.Status) []domainwf.Edge
	CanView(actor entity.ActorContext, rec *entity.RequestRecord) bool
}

// Project filters, sorts and pages records for the actor. It never modifies a record.
func Project(gate Authorizer, actor entity.ActorContext, records []*entity.RequestRecord, q Query) Page {
	q = q.Normalize()

	matched := make([]*entity.RequestRecord, 0, len(records))
	for _, rec := range records {
		if inView(gate, actor, rec, q.View) && matches(rec, q.Search) {
			matched = append(matched, rec)
		}
	}

	SortNewestFirst(matched)

	total := len(matched)
	// pages past the end are empty; checked before multiplying so huge pages cannot overflow
	start := total
	if pages := (total + q.Limit - 1) / q.Limit; q.Page-1 < pages {
		start = (q.Page - 1) * q.Limit
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	return Page{
		Items: matched[start:end],
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}
}

func inView(gate Authorizer, actor entity.ActorContext, rec *entity.RequestRecord, view View) bool {
	switch view {
	case ViewMine:
		return rec.IsOwnedBy(actor.UserID)
	case ViewPending:
		return isReviewStage(rec.Status) && len(gate.CanAct(actor.Role, rec.Type, rec.Status)) > 0
	case ViewApproved:
		return !isReviewStage(rec.Status) && len(gate.CanAct(actor.Role, rec.Type, rec.Status)) > 0
	case ViewHistory:
		return gate.CanView(actor, rec)
	default:
		return false
	}
}

// isReviewStage is true before a record has been approved
func isReviewStage(s domainwf.Status) bool {
	return s == domainwf.StatusPending || s == domainwf.StatusEndorsed
}

// matches does a case-insensitive substring search over the listed columns
func matches(rec *entity.RequestRecord, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, hay := range []string{
		rec.Code,
		rec.Requester.Name,
		rec.Requester.EmployeeID,
		rec.Requester.Branch,
		rec.Requester.Department,
		rec.Status.String(),
	} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// SortNewestFirst orders records by descending reference code
func SortNewestFirst(records []*entity.RequestRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Code > records[j].Code
	})
}
