package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/ingest"
	"transit_tracker/internal/query"
	"transit_tracker/internal/simulator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		body string
	}{
		{&geo.CoordinateError{Field: "lat", Value: 91, Message: "out of range"}, http.StatusBadRequest, ""},
		{query.ErrNoStops, http.StatusNotFound, `{"error":"no stops"}`},
		{query.ErrStopNotFound, http.StatusNotFound, `{"error":"stop not found"}`},
		{query.ErrNoStopInRadius, http.StatusNotFound, ""},
		{fmt.Errorf("%w: R404", simulator.ErrUnknownRoute), http.StatusNotFound, `{"error":"route not found"}`},
		{fmt.Errorf("%w: SIM-1", simulator.ErrDuplicate), http.StatusConflict, ""},
		{simulator.ErrMultiplierRange, http.StatusBadRequest, ""},
		{fmt.Errorf("%w: vehicle_id missing", ingest.ErrMalformed), http.StatusBadRequest, ""},
		{errors.New("disk on fire"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		respondError(c, tc.err)

		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		if tc.body != "" {
			assert.JSONEq(t, tc.body, rec.Body.String())
		}
	}
}

func TestUnwrapGeometry(t *testing.T) {
	obj := `{"type":"LineString","coordinates":[[0,0],[1,1]]}`

	assert.Nil(t, unwrapGeometry(nil))
	assert.Nil(t, unwrapGeometry([]byte(" null ")))
	assert.JSONEq(t, obj, string(unwrapGeometry([]byte(obj))))
	assert.JSONEq(t, obj, string(unwrapGeometry([]byte(`"{\"type\":\"LineString\",\"coordinates\":[[0,0],[1,1]]}"`))))
}
