package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

func TestCHSalesSourceDailySales(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from, to := util.MustDate("2025-01-01"), util.MustDate("2025-01-03")
	scope := models.Scope{Dataset: "kp", Branch: "B01"}
	mock.ExpectQuery("SELECT d.day, c.qty").
		WithArgs("kp", "B01", "B01", from, to, 50.0, "kp", "B01", "B01", from, to, 50.0, "MILK").
		WillReturnRows(sqlmock.NewRows([]string{"day", "qty"}).
			AddRow(from, 4.0).
			AddRow(util.MustDate("2025-01-02"), nil).
			AddRow(util.MustDate("2025-01-02"), 9.0).
			AddRow(to, 0.0))

	src := NewCHSalesSource(db, "sales_lines", 50, nil)
	series, err := src.DailySales(context.Background(), scope, "MILK", from, to)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "MILK", series.Category)
	assert.Equal(t, "B01", series.Branch)
	require.Len(t, series.Points, 3, "repeated day collapses")
	assert.True(t, series.Points[0].Valid)
	assert.Equal(t, 4.0, series.Points[0].Quantity)
	assert.False(t, series.Points[1].Valid, "no sales that day")
	assert.True(t, series.Points[2].Valid)
	assert.Equal(t, 0.0, series.Points[2].Quantity)
}

func TestCHSalesSourceQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT d.day").WillReturnError(errors.New("connection reset"))
	src := NewCHSalesSource(db, "sales_lines", 50, nil)
	_, err = src.DailySales(context.Background(), models.Scope{Dataset: "kp"}, "MILK",
		util.MustDate("2025-01-01"), util.MustDate("2025-01-02"))
	assert.ErrorContains(t, err, "daily sales")
}

func TestCHSalesSourceCategoriesRequiresEveryDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from, to := util.MustDate("2025-01-01"), util.MustDate("2025-01-31")
	mock.ExpectQuery("HAVING uniqExact").
		WithArgs("kp", "", "", from, to, 31).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("CIGARETTE").AddRow("").AddRow("MILK"))

	cats, err := NewCHSalesSource(db, "sales_lines", 50, nil).Categories(context.Background(), models.Scope{Dataset: "kp"}, from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{"CIGARETTE", "MILK"}, cats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSalesSourceBranches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT branch_id").
		WillReturnRows(sqlmock.NewRows([]string{"branch_id"}).AddRow("B01").AddRow("B02"))

	branches, err := NewCHSalesSource(db, "sales_lines", 50, nil).Branches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Branch{{ID: "B01", Name: "B01"}, {ID: "B02", Name: "B02"}}, branches)
}

func TestPGSalesSource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from, to := util.MustDate("2025-01-01"), util.MustDate("2025-01-02")
	scope := models.Scope{Dataset: "kp", Branch: "B07"}
	src := NewPGSalesSource(db, "sales_lines", "branches", 50, nil)

	mock.ExpectQuery("WITH scoped AS").
		WithArgs("kp", "B07", from, to, 50.0, "TEA").
		WillReturnRows(sqlmock.NewRows([]string{"day", "qty"}).AddRow(from, nil).AddRow(to, 2.0))
	series, err := src.DailySales(context.Background(), scope, "TEA", from, to)
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	assert.False(t, series.Points[0].Valid)
	assert.Equal(t, 2.0, series.Points[1].Quantity)

	mock.ExpectQuery("COUNT\\(DISTINCT").
		WithArgs("kp", "B07", from, to, 2).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("TEA"))
	cats, err := src.Categories(context.Background(), scope, from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{"TEA"}, cats)

	mock.ExpectQuery("SELECT id, name FROM branches").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("B07", "Kebon Jeruk"))
	branches, err := src.Branches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Branch{{ID: "B07", Name: "Kebon Jeruk"}}, branches)

	require.NoError(t, mock.ExpectationsWereMet())
}
