package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

var defaults = BatchDefaults{
	Dataset:     "Penjualan Dummy",
	Start:       util.MustDate("2022-01-01"),
	End:         util.MustDate("2025-07-31"),
	Cutoff:      util.MustDate("2025-01-01"),
	HorizonDays: 212,
}

func TestPlanFromRequestAppliesDefaults(t *testing.T) {
	plan, err := PlanFromRequest(models.BatchRequest{Categories: []string{" SNACK ", "SNACK", ""}}, defaults)
	require.NoError(t, err)

	assert.Equal(t, "Penjualan Dummy", plan.Run.Dataset)
	assert.Equal(t, defaults.Start, plan.Run.Start)
	assert.Equal(t, 212, plan.Run.HorizonDays)
	assert.Equal(t, []string{"SNACK"}, plan.Categories)
	assert.NotEmpty(t, plan.Run.RunID)
}

func TestPlanFromRequestRejects(t *testing.T) {
	for name, req := range map[string]models.BatchRequest{
		"bad date":     {Start: "yesterday"},
		"inverted":     {Start: "2025-02-01", End: "2025-01-01"},
		"long horizon": {HorizonDays: 400},
		"neg horizon":  {HorizonDays: -1},
	} {
		_, err := PlanFromRequest(req, defaults)
		assert.Error(t, err, name)
	}
}

func TestPlanItemsExplicitScope(t *testing.T) {
	src := &fakeSource{}
	plan := BatchPlan{Run: runContext(), Categories: []string{"A", "B"}, Branches: []string{"B01"}}
	items, err := plan.Items(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []models.BatchItem{{Category: "A", Branch: "B01"}, {Category: "B", Branch: "B01"}}, items)
	assert.Empty(t, src.scopes)
}

func TestPlanItemsDiscoversWholeDataset(t *testing.T) {
	src := &fakeSource{categories: []string{"X"}}
	items, err := BatchPlan{Run: runContext()}.Items(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []models.BatchItem{{Category: "X"}}, items)
	assert.Equal(t, []models.Scope{{Dataset: "Penjualan Dummy"}}, src.scopes)
}
