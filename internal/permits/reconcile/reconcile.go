// Package reconcile links requests to their applications and reports.
//
// New requests carry an explicit application id. Older rows only share the
// applicant name and address with their application, so the fallback join
// uses the composite key name + "|" + address. Lookups are batched: callers
// load every candidate application and report for a page of requests in two
// queries and resolve in memory.
package reconcile

import (
	"context"
	"slices"
	"sort"

	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/workflow"
)

// Key builds the composite applicant key.
func Key(applicantName, applicantAddress string) string {
	return applicantName + "|" + applicantAddress
}

// Match is the resolved application and report of a request. Either may be nil.
type Match struct {
	Application *repository.Application
	Report      *repository.Report
}

// EffectiveStatus returns the status shown for req given this match.
func (m Match) EffectiveStatus(req repository.Request) workflow.Evaluation {
	if m.Report == nil {
		return workflow.EffectiveStatus(req.Status, nil)
	}
	evaluation := m.Report.Evaluation
	return workflow.EffectiveStatus(req.Status, &evaluation)
}

// Ambiguity records a composite key shared by several applications.
type Ambiguity struct {
	Key            string  `json:"key"`
	ApplicationIDs []int64 `json:"applicationIds"`
	Chosen         int64   `json:"chosenApplicationId"`
}

// Index resolves requests against a batch of applications and reports.
type Index struct {
	byKey   map[string]repository.Application
	byID    map[int64]repository.Application
	reports map[int64]repository.Report
	dupes   map[string][]int64
}

// NewIndex builds the lookup maps. Applications are indexed in ascending id
// order whatever the input order, so when several share a key the newest one
// wins and the key is reported by Ambiguities.
func NewIndex(apps []repository.Application, reports []repository.Report) *Index {
	sorted := slices.Clone(apps)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].ID < sorted[b].ID })

	idx := &Index{
		byKey:   make(map[string]repository.Application, len(sorted)),
		byID:    make(map[int64]repository.Application, len(sorted)),
		reports: make(map[int64]repository.Report, len(reports)),
		dupes:   make(map[string][]int64),
	}

	for _, app := range sorted {
		if _, seen := idx.byID[app.ID]; seen {
			continue
		}
		idx.byID[app.ID] = app

		key := Key(app.ApplicantName, app.ApplicantAddress)
		if prev, ok := idx.byKey[key]; ok {
			if len(idx.dupes[key]) == 0 {
				idx.dupes[key] = []int64{prev.ID}
			}
			idx.dupes[key] = append(idx.dupes[key], app.ID)
		}
		idx.byKey[key] = app
	}

	for _, rep := range reports {
		if prev, ok := idx.reports[rep.AppID]; ok && prev.ID > rep.ID {
			continue
		}
		idx.reports[rep.AppID] = rep
	}

	return idx
}

// Resolve returns the application and report linked to req. The explicit
// application id wins over the composite key.
func (i *Index) Resolve(req repository.Request) Match {
	var app repository.Application
	var ok bool

	if req.ApplicationID != nil {
		app, ok = i.byID[*req.ApplicationID]
	}
	if !ok {
		app, ok = i.byKey[Key(req.ApplicantName, req.ApplicantAddress)]
	}
	if !ok {
		return Match{}
	}

	match := Match{Application: &app}
	if rep, found := i.reports[app.ID]; found {
		match.Report = &rep
	}
	return match
}

// EffectiveStatus resolves req and returns its effective status.
func (i *Index) EffectiveStatus(req repository.Request) workflow.Evaluation {
	return i.Resolve(req).EffectiveStatus(req)
}

// Ambiguities lists every key that matched more than one application, sorted by key.
func (i *Index) Ambiguities() []Ambiguity {
	out := make([]Ambiguity, 0, len(i.dupes))
	for key, ids := range i.dupes {
		out = append(out, Ambiguity{
			Key:            key,
			ApplicationIDs: slices.Clone(ids),
			Chosen:         i.byKey[key].ID,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Key < out[b].Key })
	return out
}

// Keys returns the distinct composite keys of requests.
func Keys(requests []repository.Request) []string {
	seen := make(map[string]struct{}, len(requests))
	keys := make([]string, 0, len(requests))
	for _, req := range requests {
		key := Key(req.ApplicantName, req.ApplicantAddress)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// LinkedApplicationIDs returns the distinct explicit application ids of requests.
func LinkedApplicationIDs(requests []repository.Request) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, req := range requests {
		if req.ApplicationID == nil {
			continue
		}
		if _, ok := seen[*req.ApplicationID]; ok {
			continue
		}
		seen[*req.ApplicationID] = struct{}{}
		ids = append(ids, *req.ApplicationID)
	}
	return ids
}

// Source is the store surface needed to build an Index.
type Source interface {
	ListApplicationsByKeys(ctx context.Context, keys []string) ([]repository.Application, error)
	ListApplicationsByIDs(ctx context.Context, ids []int64) ([]repository.Application, error)
	ListReportsByApplicationIDs(ctx context.Context, appIDs []int64) ([]repository.Report, error)
}

// Load builds the Index for requests with at most three queries regardless
// of how many requests there are.
func Load(ctx context.Context, src Source, requests []repository.Request) (*Index, error) {
	if len(requests) == 0 {
		return NewIndex(nil, nil), nil
	}

	byKey, err := src.ListApplicationsByKeys(ctx, Keys(requests))
	if err != nil {
		return nil, err
	}

	apps := byKey
	if linked := LinkedApplicationIDs(requests); len(linked) > 0 {
		byID, err := src.ListApplicationsByIDs(ctx, linked)
		if err != nil {
			return nil, err
		}
		apps = append(apps, byID...)
	}

	appIDs := make([]int64, 0, len(apps))
	seen := make(map[int64]struct{}, len(apps))
	for _, app := range apps {
		if _, ok := seen[app.ID]; ok {
			continue
		}
		seen[app.ID] = struct{}{}
		appIDs = append(appIDs, app.ID)
	}

	reports, err := src.ListReportsByApplicationIDs(ctx, appIDs)
	if err != nil {
		return nil, err
	}

	return NewIndex(apps, reports), nil
}

// OwnerOf is the reverse hop from an application to the request that owns
// it: the request explicitly linked to app, else the newest request sharing
// its composite key. candidates is typically the result of
// ListRequestsByApplicant.
func OwnerOf(app repository.Application, candidates []repository.Request) (repository.Request, bool) {
	var best *repository.Request
	key := Key(app.ApplicantName, app.ApplicantAddress)

	for idx := range candidates {
		req := &candidates[idx]
		if req.ApplicationID != nil && *req.ApplicationID == app.ID {
			return *req, true
		}
		if req.ApplicationID != nil {
			continue
		}
		if Key(req.ApplicantName, req.ApplicantAddress) != key {
			continue
		}
		if best == nil || req.ID > best.ID {
			best = req
		}
	}

	if best == nil {
		return repository.Request{}, false
	}
	return *best, true
}
