package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tastemap/internal/http/response"
	"github.com/tastemap/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func runMappedError(t *testing.T, err error, rules []mappedHandlerError) map[string]interface{} {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request.Header.Set("Accept-Language", "en-US")

	respondWithMappedError(c, err, rules, response.CodeInternal, "error.internal_error")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondWithMappedErrorConditionProgress(t *testing.T) {
	err := fmt.Errorf("claim: %w", &service.ConditionNotMetError{Progress: service.ConditionProgress{
		Kind:      "POINTS_AT_LEAST",
		Current:   30,
		Required:  100,
		Remaining: 70,
	}})
	body := runMappedError(t, err, claimErrorRules)

	require.EqualValues(t, 400, body["status_code"])
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	progress, ok := data["progress"].(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 70, progress["remaining"])
}

func TestRespondWithMappedErrorRules(t *testing.T) {
	cases := []struct {
		err   error
		rules []mappedHandlerError
		code  int
	}{
		{err: service.ErrCouponPerUserLimitReached, rules: claimErrorRules, code: 409},
		{err: fmt.Errorf("wrapped: %w", service.ErrStaffNotAuthorized), rules: redeemErrorRules, code: 403},
		{err: service.ErrCouponWrongRestaurant, rules: redeemErrorRules, code: 400},
		{err: service.ErrEmailExists, rules: registerErrorRules, code: 409},
		{err: service.ErrVisitAlreadyRecorded, rules: activityErrorRules, code: 409},
		{err: fmt.Errorf("db down"), rules: claimErrorRules, code: 500},
	}
	for _, tc := range cases {
		body := runMappedError(t, tc.err, tc.rules)
		require.EqualValues(t, tc.code, body["status_code"], tc.err.Error())
	}
}
