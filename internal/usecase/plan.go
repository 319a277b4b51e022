package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	drepo "github.com/SeekerKids/forecast-prophet-kp/internal/domain/repository"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

// AllBranches in a request expands to every branch the source knows.
const AllBranches = "*"

// BatchDefaults fill request fields the caller left empty.
type BatchDefaults struct {
	Dataset     string
	Start       time.Time
	End         time.Time
	Cutoff      time.Time
	HorizonDays int
}

// BatchPlan is a validated run: shared context plus the requested scope.
type BatchPlan struct {
	Run        models.RunContext
	Categories []string // empty means discover per branch
	Branches   []string // empty means the whole dataset
}

// PlanFromRequest validates req and resolves it against defaults.
func PlanFromRequest(req models.BatchRequest, def BatchDefaults) (BatchPlan, error) {
	rc := models.RunContext{
		RunID:       NewRunID(),
		Dataset:     firstNonEmpty(req.Dataset, def.Dataset),
		HorizonDays: req.HorizonDays,
	}
	var err error
	if rc.Start, err = resolveDate("start", req.Start, def.Start); err != nil {
		return BatchPlan{}, err
	}
	if rc.End, err = resolveDate("end", req.End, def.End); err != nil {
		return BatchPlan{}, err
	}
	if rc.Cutoff, err = resolveDate("cutoff", req.Cutoff, def.Cutoff); err != nil {
		return BatchPlan{}, err
	}
	if rc.HorizonDays == 0 {
		rc.HorizonDays = def.HorizonDays
	}
	if rc.Dataset == "" {
		return BatchPlan{}, fmt.Errorf("dataset is required")
	}
	if err := rc.Validate(); err != nil {
		return BatchPlan{}, err
	}
	if rc.HorizonDays > 365 {
		return BatchPlan{}, fmt.Errorf("horizon must be at most 365 days, got %d", rc.HorizonDays)
	}
	return BatchPlan{
		Run:        rc,
		Categories: cleanList(req.Categories),
		Branches:   cleanList(req.Branches),
	}, nil
}

// Items expands the plan into batch items. Branches come before categories
// so each branch's outputs are produced together.
func (p BatchPlan) Items(ctx context.Context, source drepo.SalesSource) ([]models.BatchItem, error) {
	branches := p.Branches
	if len(branches) == 1 && branches[0] == AllBranches {
		known, err := source.Branches(ctx)
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		branches = make([]string, 0, len(known))
		for _, b := range known {
			branches = append(branches, b.ID)
		}
	}
	if len(branches) == 0 {
		branches = []string{""}
	}

	var items []models.BatchItem
	for _, branch := range branches {
		cats := p.Categories
		if len(cats) == 0 {
			found, err := source.Categories(ctx, models.Scope{Dataset: p.Run.Dataset, Branch: branch}, p.Run.Start, p.Run.End)
			if err != nil {
				return nil, fmt.Errorf("discover categories (branch %q): %w", branch, err)
			}
			cats = found
		}
		for _, c := range cats {
			items = append(items, models.BatchItem{Category: c, Branch: branch})
		}
	}
	return items, nil
}

// NewRunID returns a time-ordered run identifier (UUIDv7).
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func resolveDate(name, raw string, def time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return util.Day(def), nil
	}
	t, ok := util.ParseDate(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid %s date %q", name, raw)
	}
	return t, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
