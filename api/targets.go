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
	"time"

	"github.com/gin-gonic/gin"
)

// GetTarget retrieves a single submission target by ID.
func (a Api) GetTarget(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.fedsub.GetSubmissionTarget(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetFailedTargets lists the failed targets of a submission: the set a retry
// would re-dispatch.
func (a Api) GetFailedTargets(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.fedsub.ListFailedTargets(c.Request.Context(), id, c.GetString("owner"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStuckTargets lists targets that have sat in flight longer than the given
// window, for operators chasing dispatches that died mid-delivery.
func (a Api) GetStuckTargets(c *gin.Context) {
	minutes, _ := strconv.Atoi(c.DefaultQuery("older_than_minutes", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	resp, err := a.fedsub.ListStuckTargets(c.Request.Context(), time.Duration(minutes)*time.Minute, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
