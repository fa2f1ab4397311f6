package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type slotRequest struct {
	Date  string  `json:"date" validate:"required,civildate"`
	Start string  `json:"start" validate:"required,clock"`
	End   *string `json:"end" validate:"omitempty,clock"`
	Count int     `json:"count" validate:"gte=0"`
}

func TestValidateCustomRules(t *testing.T) {
	end := "17:30"
	assert.NoError(t, Validate(&slotRequest{Date: "2024-06-10", Start: "09:00", End: &end}))
	assert.NoError(t, Validate(&slotRequest{Date: "2024-02-29", Start: "00:00"}))

	bad := "25:00"
	tests := map[string]slotRequest{
		"impossible date": {Date: "2023-02-29", Start: "09:00"},
		"loose date":      {Date: "2024-6-1", Start: "09:00"},
		"bad clock":       {Date: "2024-06-10", Start: "9am"},
		"bad end":         {Date: "2024-06-10", Start: "09:00", End: &bad},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Validate(&req))
		})
	}
}

func TestFormatValidationError(t *testing.T) {
	err := Validate(&slotRequest{Start: "09:00", Count: -1})
	msg := FormatValidationError(err)
	assert.Contains(t, msg, "Date failed on 'required'")
	assert.Contains(t, msg, "Count failed on 'gte'=0")
}

func TestBindAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(body string) (*httptest.ResponseRecorder, bool) {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var req slotRequest
		return rec, BindAndValidate(c, &req)
	}

	_, ok := run(`{"date":"2024-06-10","start":"09:00"}`)
	assert.True(t, ok)

	rec, ok := run(`{"date":`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request payload")

	rec, ok = run(`{"date":"2024-06-10","start":"noon"}`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Start failed on 'clock'")
}
