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
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	model2 "github.com/fedsubhq/fedsub/api/model"

	"github.com/gin-gonic/gin"
)

// CreateSubmission handles the creation of a new federated submission.
// It binds the incoming JSON request to a CreateSubmission object, validates it,
// and then creates the submission with its frozen cost and one pending target
// per requested directory. If any errors occur during validation or creation,
// it responds with an appropriate error message.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If there's an error in binding JSON, validating the submission, or pricing a directory.
// - 201 Created: If the submission is successfully created.
func (a Api) CreateSubmission(c *gin.Context) {
	var newSubmission model2.CreateSubmission
	// Bind the incoming JSON request to the newSubmission model
	if err := c.ShouldBindJSON(&newSubmission); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// Validate the submission data
	err := newSubmission.ValidateCreateSubmission()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	submission := newSubmission.ToSubmission()
	// An authenticated owner always wins over the one named in the body
	if owner := c.GetString("owner"); owner != "" {
		submission.OwnerID = owner
	}

	resp, err := a.fedsub.CreateFederatedSubmission(c.Request.Context(), submission, newSubmission.Tier)
	if err != nil {
		respondError(c, err)
		return
	}

	// Return a response with the created submission
	c.JSON(http.StatusCreated, resp)
}

// GetSubmission retrieves a federated submission by its ID.
// It returns the frozen submission record if found and owned by the caller.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If the ID is missing.
// - 403 Forbidden: If the caller does not own the submission.
// - 404 Not Found: If no submission exists with the given ID.
// - 200 OK: If the submission is successfully retrieved.
func (a Api) GetSubmission(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.fedsub.GetFederatedSubmission(c.Request.Context(), id, c.GetString("owner"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSubmissionStatus retrieves a submission together with every target and
// the overall status derived from the target states.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If the ID is missing.
// - 403 Forbidden: If the caller does not own the submission.
// - 404 Not Found: If no submission exists with the given ID.
// - 200 OK: If the status is successfully retrieved.
func (a Api) GetSubmissionStatus(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.fedsub.GetFederatedSubmissionStatus(c.Request.Context(), id, c.GetString("owner"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListSubmissions lists the authenticated owner's submissions, newest first.
// Advanced filter parameters (field_operator=value) switch the endpoint into
// filtered mode, which also accepts sort_by, sort_order and include_count.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If no owner can be resolved, or a filter is malformed.
// - 200 OK: Returns the list of submissions.
func (a Api) ListSubmissions(c *gin.Context) {
	owner := c.GetString("owner")
	if owner == "" {
		owner = c.Query("owner")
	}
	limit, offset := parsePagination(c)

	if HasFilters(c) {
		filters, parseErrors := ParseFiltersFromContext(c, nil)
		if len(parseErrors) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter parameters", "details": parseErrors})
			return
		}

		opts := ParseQueryOptions(c)
		submissions, totalCount, err := a.fedsub.ListSubmissionsWithFilters(c.Request.Context(), owner, filters, opts, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, FilterResponse{Data: submissions, TotalCount: totalCount})
		return
	}

	resp, err := a.fedsub.ListSubmissions(c.Request.Context(), owner, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchSubmissions filters submissions with a JSON filter body instead of
// query parameters. Callers authenticated by API key are scoped to their own
// submissions; master-key callers without an owner header search across all
// publishers.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If the filter body is malformed.
// - 200 OK: Returns the matching submissions with an optional total count.
func (a Api) SearchSubmissions(c *gin.Context) {
	filters, opts, limit, offset, err := ParseFiltersFromBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter body", "details": err.Error()})
		return
	}

	owner := c.GetString("owner")
	submissions, totalCount, err := a.fedsub.ListSubmissionsWithFilters(c.Request.Context(), owner, filters, opts, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, FilterResponse{Data: submissions, TotalCount: totalCount})
}

// SubmitToDirectories dispatches a paid submission to each of its pending
// directories concurrently. Partial outcomes are reported, not raised: the
// response always carries the per-target results.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If the ID is missing.
// - 402 Payment Required: If the submission has not been paid for.
// - 403 Forbidden: If the caller does not own the submission.
// - 404 Not Found: If no submission exists with the given ID.
// - 409 Conflict: If another dispatch currently holds the submission.
// - 200 OK: If every target was submitted.
// - 207 Multi-Status: If the dispatch completed with failed or skipped targets.
func (a Api) SubmitToDirectories(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.fedsub.SubmitToFederatedDirectories(c.Request.Context(), id, c.GetString("owner"))
	if err != nil {
		respondError(c, err)
		return
	}

	if resp.Success {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusMultiStatus, resp)
}

// RetryFailedTargets resets a submission's failed targets to pending and runs
// another dispatch pass over them. Already submitted targets are never resent
// and the submission is never re-charged.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If the ID is missing.
// - 402 Payment Required: If the submission has not been paid for.
// - 403 Forbidden: If the caller does not own the submission.
// - 404 Not Found: If no submission exists with the given ID.
// - 200 OK: If the retry left every target submitted, or there was nothing to retry.
// - 207 Multi-Status: If some targets failed again.
func (a Api) RetryFailedTargets(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.fedsub.RetryFailedSubmissions(c.Request.Context(), id, c.GetString("owner"))
	if err != nil {
		respondError(c, err)
		return
	}

	if resp.Success {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusMultiStatus, resp)
}

// PaySubmission records a completed payment capture against a submission,
// opening the dispatch gate. The processor reference is stored for audit.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If there's an error in binding JSON or the payment reference is missing.
// - 404 Not Found: If no submission exists with the given ID.
// - 409 Conflict: If the submission is not awaiting payment.
// - 200 OK: If the payment is successfully recorded.
func (a Api) PaySubmission(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var req model2.PaySubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := req.ValidatePaySubmission(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.fedsub.MarkSubmissionPaid(c.Request.Context(), id, req.PaymentRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parsePagination reads limit and offset query parameters, clamping limit to
// the same window the filter endpoints use.
func parsePagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
