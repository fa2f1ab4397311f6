package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-appointments-server/internal/scheduling"
)

func TestRespondErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		want int
	}{
		{scheduling.ErrAppointmentNotFound, http.StatusNotFound},
		{scheduling.ErrDoubleBooking, http.StatusConflict},
		{fmt.Errorf("lock: %w", scheduling.ErrAlreadyCheckedIn), http.StatusConflict},
		{scheduling.ErrNotAllowed, http.StatusForbidden},
		{scheduling.ErrInvalidReference, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			respondError(c, tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	respondError(c, errors.New("dial tcp 10.0.0.3:3306: refused"))

	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	require.Len(t, c.Errors, 1)
}

func TestParseBound(t *testing.T) {
	zone := time.FixedZone("CST", -6*3600)

	got, err := parseBound("", zone, false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseBound("2024-06-10T15:00:00Z", zone, false)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)))

	got, err = parseBound("2024-06-10", zone, false)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, zone)))

	got, err = parseBound("2024-06-10", zone, true)
	require.NoError(t, err)
	assert.True(t, got.Before(time.Date(2024, 6, 11, 0, 0, 0, 0, zone)))
	assert.True(t, got.After(time.Date(2024, 6, 10, 23, 59, 59, 0, zone)))

	_, err = parseBound("june", zone, false)
	assert.ErrorIs(t, err, scheduling.ErrValidation)
}

func TestActorOrAbortWithoutAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	_, ok := actorOrAbort(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
