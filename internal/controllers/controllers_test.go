package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zaqqye/defense_backend_v1/internal/allocation"
	"github.com/zaqqye/defense_backend_v1/internal/store"
	"github.com/zaqqye/defense_backend_v1/internal/validation"
)

func TestFlexibleString(t *testing.T) {
	cases := map[string]string{
		`"  2301 "`:  "2301",
		`2301`:       "2301",
		`1234567890`: "1234567890",
		`null`:       "",
	}
	for in, want := range cases {
		var fs FlexibleString
		require.NoError(t, json.Unmarshal([]byte(in), &fs), in)
		assert.Equal(t, want, fs.String(), in)
	}

	var fs FlexibleString
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &fs))
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("register: %w", allocation.ErrCapacityExceeded), http.StatusConflict, "CAPACITY_EXCEEDED"},
		{store.ErrStaleWrite, http.StatusConflict, "CONCURRENT_UPDATE"},
		{validation.New("bad input", validation.FieldError{Field: "title", Error: "title is required"}), http.StatusBadRequest, "VALIDATION_FAILED"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, zap.NewNop(), tc.err)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body["code"])
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, zap.NewNop(), fmt.Errorf("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
}
