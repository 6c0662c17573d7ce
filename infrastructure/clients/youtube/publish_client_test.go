package youtube

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"video-autopilot/domain/model"
)

func TestClassify_QuotaExceeded(t *testing.T) {
	err := &googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}},
	}
	assert.Equal(t, model.ErrKindQuota, model.KindOf(classify(err)))
}

func TestClassify_RateLimitIsQuota(t *testing.T) {
	err := &googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
	}
	assert.Equal(t, model.ErrKindQuota, model.KindOf(classify(err)))
}

func TestClassify_Unauthorized(t *testing.T) {
	err := &googleapi.Error{Code: http.StatusUnauthorized}
	assert.Equal(t, model.ErrKindAuth, model.KindOf(classify(err)))
}

func TestClassify_ServerError(t *testing.T) {
	err := &googleapi.Error{Code: http.StatusServiceUnavailable}
	assert.Equal(t, model.ErrKindTransient, model.KindOf(classify(err)))
}

func TestClassify_BadRequestIsPermanent(t *testing.T) {
	err := &googleapi.Error{Code: http.StatusBadRequest}
	assert.Equal(t, model.ErrKindPermanent, model.KindOf(classify(err)))
}

func TestClassify_UnknownErrorIsTransient(t *testing.T) {
	assert.Equal(t, model.ErrKindTransient, model.KindOf(classify(errors.New("connection reset"))))
}

func TestClassifyRefresh_InvalidGrantIsAuth(t *testing.T) {
	err := &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusBadRequest},
		ErrorCode: "invalid_grant",
	}
	assert.Equal(t, model.ErrKindAuth, model.KindOf(classifyRefresh(err)))
}

func TestClassifyRefresh_ServerErrorIsTransient(t *testing.T) {
	err := &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusBadGateway},
	}
	assert.Equal(t, model.ErrKindTransient, model.KindOf(classifyRefresh(err)))
}
