package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/storage"
	"github.com/gridsage/gridsage/pkg/storage/storagemock"
	"github.com/gridsage/gridsage/pkg/types"
)

func TestHandleGetTariffDefault(t *testing.T) {
	db := new(storagemock.MockDatabase)
	db.On("GetTariffStructure", mock.Anything, "u1").Return(types.TariffStructure{}, storage.ErrTariffNotFound)
	srv := newTestServer(db)

	req := asUser(httptest.NewRequest("GET", "/api/tariff", nil), "u1")
	w := httptest.NewRecorder()
	srv.handleGetTariff(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res tariffRes
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "default", res.Source)
	assert.NotEmpty(t, res.Periods)
	db.AssertExpectations(t)
}

func TestHandleGetTariffStored(t *testing.T) {
	db := new(storagemock.MockDatabase)
	db.On("GetTariffStructure", mock.Anything, "u1").Return(types.TariffStructure{
		UserID: "u1",
		Periods: []types.TariffPeriod{{
			Name:        "flat",
			StartTime:   types.MustTimeOfDay("00:00"),
			EndTime:     types.MustTimeOfDay("00:00"),
			PricePerKWH: 0.2,
		}},
	}, nil)
	srv := newTestServer(db)

	req := asUser(httptest.NewRequest("GET", "/api/tariff", nil), "u1")
	w := httptest.NewRecorder()
	srv.handleGetTariff(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res tariffRes
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "stored", res.Source)
	require.Len(t, res.Periods, 1)
	assert.Equal(t, "flat", res.Periods[0].Name)
}

func TestHandlePutTariff(t *testing.T) {
	t.Run("SavesPeriodsInOrder", func(t *testing.T) {
		db := new(storagemock.MockDatabase)
		db.On("SetTariffStructure", mock.Anything, "u1", mock.MatchedBy(func(ts types.TariffStructure) bool {
			return ts.UserID == "u1" && len(ts.Periods) == 2 && ts.Periods[0].Name == "peak"
		})).Return(nil)
		srv := newTestServer(db)

		body := `{"periods":[
			{"name":"peak","startTime":"17:00","endTime":"21:00","pricePerKWH":0.35},
			{"name":"offpeak","startTime":"21:00","endTime":"17:00","pricePerKWH":0.12}
		]}`
		req := asUser(httptest.NewRequest("PUT", "/api/tariff", strings.NewReader(body)), "u1")
		w := httptest.NewRecorder()
		srv.handlePutTariff(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		db.AssertExpectations(t)
	})

	t.Run("RejectsEmptyPeriods", func(t *testing.T) {
		srv := newTestServer(new(storagemock.MockDatabase))

		req := asUser(httptest.NewRequest("PUT", "/api/tariff", strings.NewReader(`{"periods":[]}`)), "u1")
		w := httptest.NewRecorder()
		srv.handlePutTariff(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RejectsNegativePrice", func(t *testing.T) {
		srv := newTestServer(new(storagemock.MockDatabase))

		body := `{"periods":[{"name":"bad","startTime":"00:00","endTime":"00:00","pricePerKWH":-0.1}]}`
		req := asUser(httptest.NewRequest("PUT", "/api/tariff", strings.NewReader(body)), "u1")
		w := httptest.NewRecorder()
		srv.handlePutTariff(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RejectsMissingName", func(t *testing.T) {
		srv := newTestServer(new(storagemock.MockDatabase))

		body := `{"periods":[{"name":"","startTime":"00:00","endTime":"00:00","pricePerKWH":0.1}]}`
		req := asUser(httptest.NewRequest("PUT", "/api/tariff", strings.NewReader(body)), "u1")
		w := httptest.NewRecorder()
		srv.handlePutTariff(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetTariffIntervals(t *testing.T) {
	db := new(storagemock.MockDatabase)
	db.On("GetTariffStructure", mock.Anything, "u1").Return(types.TariffStructure{}, storage.ErrTariffNotFound)
	srv := newTestServer(db)

	req := asUser(httptest.NewRequest("GET", "/api/tariff/intervals?date=2024-06-20", nil), "u1")
	w := httptest.NewRecorder()
	srv.handleGetTariffIntervals(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Date      string                 `json:"date"`
		Intervals []types.TariffInterval `json:"intervals"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "2024-06-20", res.Date)
	require.Len(t, res.Intervals, grid.SlotsPerDay)
	for _, iv := range res.Intervals {
		assert.Greater(t, iv.PricePerKWH, 0.0)
		assert.NotEmpty(t, iv.PeriodName)
	}
}

func TestHandleGetTariffIntervalsBadDate(t *testing.T) {
	srv := newTestServer(new(storagemock.MockDatabase))

	req := asUser(httptest.NewRequest("GET", "/api/tariff/intervals?date=junk", nil), "u1")
	w := httptest.NewRecorder()
	srv.handleGetTariffIntervals(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
