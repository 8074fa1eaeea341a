/*
Copyright 2025 Fedsub Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fedsubhq/fedsub"
	"github.com/fedsubhq/fedsub/api/middleware"
	model2 "github.com/fedsubhq/fedsub/api/model"
	"github.com/fedsubhq/fedsub/config"
	"github.com/fedsubhq/fedsub/database/mocks"
	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/internal/request"
	"github.com/fedsubhq/fedsub/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Auth     string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)

	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	err := json.NewDecoder(resp.Body).Decode(&s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// setupTestRouter wires the full API stack against a mocked datasource and an
// embedded redis, so handler tests exercise routing, auth and the service
// layer without external processes.
func setupTestRouter(t *testing.T) (*gin.Engine, *mocks.MockDataSource) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	t.Cleanup(mr.Close)

	config.MockConfig(&config.Configuration{
		Redis:      config.RedisConfig{Dns: mr.Addr()},
		Queue:      config.QueueConfig{WebhookQueue: "fedsub:webhook", IndexQueue: "fedsub:index"},
		Dispatch:   config.DispatchConfig{MaxConcurrency: 4, RequestTimeoutSec: 1, MaxAttempts: 1},
		Settlement: config.SettlementConfig{Currency: "USD"},
	})

	mockDS := new(mocks.MockDataSource)
	service, err := fedsub.NewFedsub(mockDS)
	if err != nil {
		t.Fatalf("an error '%s' occurred when creating the service", err)
	}
	return NewAPI(service).Router(), mockDS
}

func ownerHeader(owner string) map[string]string {
	return map[string]string{middleware.OwnerHeader: owner}
}

// directoryServer answers like a remote directory endpoint, acknowledging
// every delivery with the given ack ID.
func directoryServer(t *testing.T, ackID string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"ack_id": ackID})
	}))
	t.Cleanup(server.Close)
	return server
}

func freeAPIDirectory(id, submitURL string) *model.Directory {
	return &model.Directory{
		DirectoryID: id,
		Name:        "Directory " + id,
		Status:      model.DirectoryStatusActive,
		FeeSchedule: model.FeeSchedule{Model: model.PricingFree},
		SubmitURL:   submitURL,
	}
}

func TestCreateSubmission(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("GetDirectories", mock.Anything, []string{"dir_free"}).Return([]*model.Directory{
		freeAPIDirectory("dir_free", "https://dir-free.example.com/submissions"),
	}, nil)
	mockDS.On("RecordSubmission", mock.Anything, mock.Anything).Return(&model.FederatedSubmission{
		SubmissionID:  "sub_api1",
		OwnerID:       "usr_1",
		LaunchName:    "Orbit",
		DirectoryIDs:  []string{"dir_free"},
		PaymentStatus: model.PaymentWaived,
	}, nil)
	mockDS.On("CreateTargets", mock.Anything, "sub_api1", mock.Anything).Return([]*model.SubmissionTarget{}, nil)

	tests := []struct {
		name         string
		payload      model2.CreateSubmission
		expectedCode int
		wantErr      bool
	}{
		{
			name: "Valid Submission",
			payload: model2.CreateSubmission{
				Owner:       "usr_1",
				LaunchName:  "Orbit",
				LaunchURL:   "https://orbit.example.com",
				Description: "A launch tracker for small satellite operators.",
				Directories: []string{"dir_free"},
			},
			expectedCode: http.StatusCreated,
			wantErr:      false,
		},
		{
			name: "Missing Launch Name",
			payload: model2.CreateSubmission{
				Owner:       "usr_1",
				LaunchURL:   "https://orbit.example.com",
				Directories: []string{"dir_free"},
			},
			expectedCode: http.StatusBadRequest,
			wantErr:      false,
		},
		{
			name: "Missing Launch URL",
			payload: model2.CreateSubmission{
				Owner:       "usr_1",
				LaunchName:  "Orbit",
				Directories: []string{"dir_free"},
			},
			expectedCode: http.StatusBadRequest,
			wantErr:      false,
		},
		{
			name: "No Directories",
			payload: model2.CreateSubmission{
				Owner:      "usr_1",
				LaunchName: "Orbit",
				LaunchURL:  "https://orbit.example.com",
			},
			expectedCode: http.StatusBadRequest,
			wantErr:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloadBytes, _ := request.ToJsonReq(&tt.payload)
			var response model.FederatedSubmission
			testRequest := TestRequest{
				Payload:  payloadBytes,
				Response: &response,
				Method:   "POST",
				Route:    "/submissions",
				Auth:     "",
				Router:   router,
			}

			resp, err := SetUpTestRequest(testRequest)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetUpTestRequest() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			assert.Equal(t, tt.expectedCode, resp.Code)

			if tt.expectedCode == http.StatusCreated {
				assert.Equal(t, "sub_api1", response.SubmissionID)
				assert.Equal(t, model.PaymentWaived, response.PaymentStatus)
			}
		})
	}
}

func TestCreateSubmissionOwnerHeaderWins(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("GetDirectories", mock.Anything, []string{"dir_free"}).Return([]*model.Directory{
		freeAPIDirectory("dir_free", "https://dir-free.example.com/submissions"),
	}, nil)

	var recorded *model.FederatedSubmission
	mockDS.On("RecordSubmission", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*model.FederatedSubmission)
	}).Return(&model.FederatedSubmission{SubmissionID: "sub_api2", OwnerID: "usr_authenticated"}, nil)
	mockDS.On("CreateTargets", mock.Anything, "sub_api2", mock.Anything).Return([]*model.SubmissionTarget{}, nil)

	payload := model2.CreateSubmission{
		Owner:       "usr_spoofed",
		LaunchName:  "Orbit",
		LaunchURL:   "https://orbit.example.com",
		Directories: []string{"dir_free"},
	}
	payloadBytes, _ := request.ToJsonReq(&payload)
	var response model.FederatedSubmission
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  payloadBytes,
		Response: &response,
		Method:   "POST",
		Route:    "/submissions",
		Auth:     "",
		Header:   ownerHeader("usr_authenticated"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "usr_authenticated", recorded.OwnerID)
}

func TestGetSubmission(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	owned := &model.FederatedSubmission{
		SubmissionID:  "sub_owned",
		OwnerID:       "usr_1",
		LaunchName:    "Orbit",
		PaymentStatus: model.PaymentPending,
	}
	mockDS.On("GetSubmission", mock.Anything, "sub_owned").Return(owned, nil)
	mockDS.On("GetSubmission", mock.Anything, "sub_missing").Return(nil,
		apierror.NewAPIError(apierror.ErrNotFound, "Submission not found", nil))

	tests := []struct {
		name         string
		route        string
		owner        string
		expectedCode int
	}{
		{
			name:         "Owner Reads Own Submission",
			route:        "/submissions/sub_owned",
			owner:        "usr_1",
			expectedCode: http.StatusOK,
		},
		{
			name:         "Another Owner Is Rejected",
			route:        "/submissions/sub_owned",
			owner:        "usr_2",
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "Unknown Submission",
			route:        "/submissions/sub_missing",
			owner:        "usr_1",
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var response model.FederatedSubmission
			resp, err := SetUpTestRequest(TestRequest{
				Payload:  nil,
				Response: &response,
				Method:   "GET",
				Route:    tt.route,
				Auth:     "",
				Header:   ownerHeader(tt.owner),
				Router:   router,
			})

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, "sub_owned", response.SubmissionID)
				assert.Equal(t, "Orbit", response.LaunchName)
			}
		})
	}
}

func TestGetSubmissionStatus(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("GetSubmission", mock.Anything, "sub_123").Return(&model.FederatedSubmission{
		SubmissionID: "sub_123",
		OwnerID:      "usr_1",
	}, nil)
	mockDS.On("GetTargetsBySubmission", mock.Anything, "sub_123").Return([]*model.SubmissionTarget{
		{TargetID: "tgt_1", SubmissionID: "sub_123", DirectoryID: "dir_1", State: model.StatusSubmitted},
		{TargetID: "tgt_2", SubmissionID: "sub_123", DirectoryID: "dir_2", State: model.StatusFailed, ErrorClass: model.ErrorClassTransient},
	}, nil)

	var response model.SubmissionStatus
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "GET",
		Route:    "/submissions/sub_123/status",
		Auth:     "",
		Header:   ownerHeader("usr_1"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.OverallPartial, response.OverallStatus)
	assert.Len(t, response.Targets, 2)
}

func TestGetFailedTargets(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("GetSubmission", mock.Anything, "sub_123").Return(&model.FederatedSubmission{
		SubmissionID: "sub_123",
		OwnerID:      "usr_1",
	}, nil)
	mockDS.On("GetFailedTargets", mock.Anything, "sub_123").Return([]*model.SubmissionTarget{
		{TargetID: "tgt_2", SubmissionID: "sub_123", DirectoryID: "dir_2", State: model.StatusFailed, ErrorClass: model.ErrorClassTransient, ErrorDetail: "directory timeout"},
	}, nil)

	var response []model.SubmissionTarget
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "GET",
		Route:    "/submissions/sub_123/failed-targets",
		Auth:     "",
		Header:   ownerHeader("usr_1"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 1)
	assert.Equal(t, model.ErrorClassTransient, response[0].ErrorClass)
}

func TestListSubmissions(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("GetSubmissionsByOwner", mock.Anything, "usr_1", 20, 0).Return([]*model.FederatedSubmission{
		{SubmissionID: "sub_1", OwnerID: "usr_1"},
		{SubmissionID: "sub_2", OwnerID: "usr_1"},
	}, nil)

	var response []model.FederatedSubmission
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "GET",
		Route:    "/submissions",
		Auth:     "",
		Header:   ownerHeader("usr_1"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 2)

	// Without a resolvable owner the plain list is refused.
	var errResponse map[string]interface{}
	resp, err = SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &errResponse,
		Method:   "GET",
		Route:    "/submissions",
		Auth:     "",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitToDirectoriesAllSubmitted(t *testing.T) {
	router, mockDS := setupTestRouter(t)
	remote := directoryServer(t, "ack_remote_1")

	submission := &model.FederatedSubmission{
		SubmissionID:  "sub_123",
		OwnerID:       "usr_1",
		LaunchName:    "Orbit",
		LaunchURL:     "https://orbit.example.com",
		DirectoryIDs:  []string{"dir_1"},
		TotalCost:     decimal.NewFromInt(25),
		Currency:      "USD",
		PaymentStatus: model.PaymentCompleted,
	}
	target := &model.SubmissionTarget{TargetID: "tgt_1", SubmissionID: "sub_123", DirectoryID: "dir_1", State: model.StatusPending}

	mockDS.On("GetSubmission", mock.Anything, "sub_123").Return(submission, nil)
	mockDS.On("CreateTargets", mock.Anything, "sub_123", mock.Anything).Return([]*model.SubmissionTarget{target}, nil)
	mockDS.On("ClaimTarget", mock.Anything, "tgt_1").Return(true, nil)
	mockDS.On("GetDirectory", mock.Anything, "dir_1").Return(freeAPIDirectory("dir_1", remote.URL), nil)
	mockDS.On("MarkTargetSubmitted", mock.Anything, "tgt_1", "ack_remote_1").Return(nil)
	mockDS.On("IncrementSubmissionCount", mock.Anything, "dir_1").Return(nil)
	mockDS.On("GetTargetsBySubmission", mock.Anything, "sub_123").Return([]*model.SubmissionTarget{
		{TargetID: "tgt_1", SubmissionID: "sub_123", DirectoryID: "dir_1", State: model.StatusSubmitted},
	}, nil)

	var response model.DispatchResult
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "POST",
		Route:    "/submissions/sub_123/submit",
		Auth:     "",
		Header:   ownerHeader("usr_1"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, response.Success)
	assert.Equal(t, model.OverallAllSubmitted, response.OverallStatus)
	assert.Equal(t, 1, response.Submitted)
	mockDS.AssertExpectations(t)
}

func TestSubmitToDirectoriesPartialIsMultiStatus(t *testing.T) {
	router, mockDS := setupTestRouter(t)
	healthy := directoryServer(t, "ack_remote_1")
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "directory exploded"})
	}))
	t.Cleanup(broken.Close)

	submission := &model.FederatedSubmission{
		SubmissionID:  "sub_123",
		OwnerID:       "usr_1",
		LaunchName:    "Orbit",
		LaunchURL:     "https://orbit.example.com",
		DirectoryIDs:  []string{"dir_ok", "dir_down"},
		TotalCost:     decimal.NewFromInt(40),
		Currency:      "USD",
		PaymentStatus: model.PaymentCompleted,
	}
	targets := []*model.SubmissionTarget{
		{TargetID: "tgt_ok", SubmissionID: "sub_123", DirectoryID: "dir_ok", State: model.StatusPending},
		{TargetID: "tgt_down", SubmissionID: "sub_123", DirectoryID: "dir_down", State: model.StatusPending},
	}

	mockDS.On("GetSubmission", mock.Anything, "sub_123").Return(submission, nil)
	mockDS.On("CreateTargets", mock.Anything, "sub_123", mock.Anything).Return(targets, nil)
	mockDS.On("ClaimTarget", mock.Anything, "tgt_ok").Return(true, nil)
	mockDS.On("ClaimTarget", mock.Anything, "tgt_down").Return(true, nil)
	mockDS.On("GetDirectory", mock.Anything, "dir_ok").Return(freeAPIDirectory("dir_ok", healthy.URL), nil)
	mockDS.On("GetDirectory", mock.Anything, "dir_down").Return(freeAPIDirectory("dir_down", broken.URL), nil)
	mockDS.On("MarkTargetSubmitted", mock.Anything, "tgt_ok", "ack_remote_1").Return(nil)
	mockDS.On("MarkTargetFailed", mock.Anything, "tgt_down", model.ErrorClassTransient, "directory exploded").Return(nil)
	mockDS.On("IncrementSubmissionCount", mock.Anything, "dir_ok").Return(nil)
	mockDS.On("GetTargetsBySubmission", mock.Anything, "sub_123").Return([]*model.SubmissionTarget{
		{TargetID: "tgt_ok", SubmissionID: "sub_123", DirectoryID: "dir_ok", State: model.StatusSubmitted},
		{TargetID: "tgt_down", SubmissionID: "sub_123", DirectoryID: "dir_down", State: model.StatusFailed},
	}, nil)

	var response model.DispatchResult
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "POST",
		Route:    "/submissions/sub_123/submit",
		Auth:     "",
		Header:   ownerHeader("usr_1"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusMultiStatus, resp.Code)
	assert.False(t, response.Success)
	assert.Equal(t, model.OverallPartial, response.OverallStatus)
	assert.Equal(t, 1, response.Submitted)
	assert.Equal(t, 1, response.Failed)
	mockDS.AssertExpectations(t)
}

func TestSubmitToDirectoriesUnpaid(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("GetSubmission", mock.Anything, "sub_unpaid").Return(&model.FederatedSubmission{
		SubmissionID:  "sub_unpaid",
		OwnerID:       "usr_1",
		DirectoryIDs:  []string{"dir_1"},
		TotalCost:     decimal.NewFromInt(25),
		Currency:      "USD",
		PaymentStatus: model.PaymentPending,
	}, nil)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "POST",
		Route:    "/submissions/sub_unpaid/submit",
		Auth:     "",
		Header:   ownerHeader("usr_1"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, resp.Code)
	mockDS.AssertNotCalled(t, "ClaimTarget", mock.Anything, mock.Anything)
}

func TestRetryFailedTargets(t *testing.T) {
	router, mockDS := setupTestRouter(t)
	remote := directoryServer(t, "ack_retry_1")

	submission := &model.FederatedSubmission{
		SubmissionID:  "sub_123",
		OwnerID:       "usr_1",
		LaunchName:    "Orbit",
		LaunchURL:     "https://orbit.example.com",
		DirectoryIDs:  []string{"dir_1", "dir_2"},
		TotalCost:     decimal.NewFromInt(40),
		Currency:      "USD",
		PaymentStatus: model.PaymentCompleted,
	}

	mockDS.On("GetSubmission", mock.Anything, "sub_123").Return(submission, nil)
	mockDS.On("ResetFailedTargets", mock.Anything, "sub_123").Return([]*model.SubmissionTarget{
		{TargetID: "tgt_2", SubmissionID: "sub_123", DirectoryID: "dir_2", State: model.StatusPending},
	}, nil)
	mockDS.On("ClaimTarget", mock.Anything, "tgt_2").Return(true, nil)
	mockDS.On("GetDirectory", mock.Anything, "dir_2").Return(freeAPIDirectory("dir_2", remote.URL), nil)
	mockDS.On("MarkTargetSubmitted", mock.Anything, "tgt_2", "ack_retry_1").Return(nil)
	mockDS.On("IncrementSubmissionCount", mock.Anything, "dir_2").Return(nil)
	mockDS.On("GetTargetsBySubmission", mock.Anything, "sub_123").Return([]*model.SubmissionTarget{
		{TargetID: "tgt_1", SubmissionID: "sub_123", DirectoryID: "dir_1", State: model.StatusSubmitted},
		{TargetID: "tgt_2", SubmissionID: "sub_123", DirectoryID: "dir_2", State: model.StatusSubmitted},
	}, nil)

	var response model.RetryResult
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "POST",
		Route:    "/submissions/sub_123/retry",
		Auth:     "",
		Header:   ownerHeader("usr_1"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, response.Success)
	assert.Equal(t, 1, response.ResetCount)
	assert.Equal(t, 1, response.Dispatch.Submitted)
	// The already submitted leg was never redispatched.
	mockDS.AssertNotCalled(t, "ClaimTarget", mock.Anything, "tgt_1")
}

func TestRetryWithNothingToReset(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("GetSubmission", mock.Anything, "sub_123").Return(&model.FederatedSubmission{
		SubmissionID:  "sub_123",
		OwnerID:       "usr_1",
		DirectoryIDs:  []string{"dir_1"},
		PaymentStatus: model.PaymentWaived,
	}, nil)
	mockDS.On("ResetFailedTargets", mock.Anything, "sub_123").Return([]*model.SubmissionTarget{}, nil)
	mockDS.On("GetTargetsBySubmission", mock.Anything, "sub_123").Return([]*model.SubmissionTarget{
		{TargetID: "tgt_1", SubmissionID: "sub_123", DirectoryID: "dir_1", State: model.StatusSubmitted},
	}, nil)

	var response model.RetryResult
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "POST",
		Route:    "/submissions/sub_123/retry",
		Auth:     "",
		Header:   ownerHeader("usr_1"),
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, response.Success)
	assert.Equal(t, 0, response.ResetCount)
	assert.Nil(t, response.Dispatch)
}

func TestPaySubmission(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("MarkSubmissionPaid", mock.Anything, "sub_123", "pay_ref_001").Return(nil)
	mockDS.On("GetSubmission", mock.Anything, "sub_123").Return(&model.FederatedSubmission{
		SubmissionID:  "sub_123",
		OwnerID:       "usr_1",
		TotalCost:     decimal.NewFromInt(25),
		Currency:      "USD",
		PaymentStatus: model.PaymentCompleted,
		PaymentRef:    "pay_ref_001",
	}, nil)
	mockDS.On("MarkSubmissionPaid", mock.Anything, "sub_replayed", "pay_ref_002").Return(
		apierror.NewAPIError(apierror.ErrConflict, "Submission is not awaiting payment", nil))

	tests := []struct {
		name         string
		route        string
		payload      model2.PaySubmission
		expectedCode int
	}{
		{
			name:         "Valid Payment",
			route:        "/submissions/sub_123/pay",
			payload:      model2.PaySubmission{PaymentRef: "pay_ref_001"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Missing Payment Ref",
			route:        "/submissions/sub_123/pay",
			payload:      model2.PaySubmission{},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Replayed Capture",
			route:        "/submissions/sub_replayed/pay",
			payload:      model2.PaySubmission{PaymentRef: "pay_ref_002"},
			expectedCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloadBytes, _ := request.ToJsonReq(&tt.payload)
			var response model.FederatedSubmission
			resp, err := SetUpTestRequest(TestRequest{
				Payload:  payloadBytes,
				Response: &response,
				Method:   "POST",
				Route:    tt.route,
				Auth:     "",
				Router:   router,
			})

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, model.PaymentCompleted, response.PaymentStatus)
				assert.Equal(t, "pay_ref_001", response.PaymentRef)
			}
		})
	}
}

func TestGetTarget(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	mockDS.On("GetTarget", mock.Anything, "tgt_1").Return(&model.SubmissionTarget{
		TargetID:     "tgt_1",
		SubmissionID: "sub_123",
		DirectoryID:  "dir_1",
		State:        model.StatusSubmitted,
		RemoteAckID:  "ack_1",
	}, nil)

	var response model.SubmissionTarget
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "GET",
		Route:    fmt.Sprintf("/targets/%s", "tgt_1"),
		Auth:     "",
		Router:   router,
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.StatusSubmitted, response.State)
	assert.Equal(t, "ack_1", response.RemoteAckID)
}

func TestGetStuckTargets(t *testing.T) {
	router, mockDS := setupTestRouter(t)

	// Without query parameters the endpoint falls back to a 30 minute window
	// and a page of 50.
	mockDS.On("GetStuckTargets", mock.Anything, 30*time.Minute, 50).Return([]*model.SubmissionTarget{
		{TargetID: "tgt_stuck", SubmissionID: "sub_123", State: model.StatusInFlight},
	}, nil)
	mockDS.On("GetStuckTargets", mock.Anything, 10*time.Minute, 5).Return([]*model.SubmissionTarget{}, nil)

	var response []model.SubmissionTarget
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &response,
		Method:   "GET",
		Route:    "/stuck-targets",
		Auth:     "",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 1)
	assert.Equal(t, "tgt_stuck", response[0].TargetID)

	var emptyResponse []model.SubmissionTarget
	resp, err = SetUpTestRequest(TestRequest{
		Payload:  nil,
		Response: &emptyResponse,
		Method:   "GET",
		Route:    "/stuck-targets?older_than_minutes=10&limit=5",
		Auth:     "",
		Router:   router,
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, emptyResponse, 0)
	mockDS.AssertExpectations(t)
}
