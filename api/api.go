package api

import (
	"fmt"
	"net/http"

	"github.com/typesense/typesense-go/typesense/api"

	"github.com/fedsubhq/fedsub/config"

	"github.com/fedsubhq/fedsub/api/middleware"

	"github.com/fedsubhq/fedsub"
	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/gin-gonic/gin"
)

type Api struct {
	fedsub *fedsub.Fedsub
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/submissions", a.CreateSubmission)
	router.GET("/submissions", a.ListSubmissions)
	router.POST("/submissions/search", a.SearchSubmissions)
	router.GET("/submissions/:id", a.GetSubmission)
	router.GET("/submissions/:id/status", a.GetSubmissionStatus)
	router.GET("/submissions/:id/failed-targets", a.GetFailedTargets)
	router.POST("/submissions/:id/submit", a.SubmitToDirectories)
	router.POST("/submissions/:id/retry", a.RetryFailedTargets)
	router.POST("/submissions/:id/pay", a.PaySubmission)

	router.POST("/directories", a.CreateDirectory)
	router.GET("/directories", a.DiscoverDirectories)
	router.GET("/directories/:id", a.GetDirectory)
	router.PUT("/directories/:id/status", a.UpdateDirectoryStatus)

	router.POST("/cost-preview", a.PreviewCost)

	router.POST("/instances", a.RegisterInstance)
	router.GET("/instances", a.DiscoverInstances)
	router.GET("/instances/:id", a.GetInstance)
	router.PUT("/instances/:id/status", a.UpdateInstanceStatus)

	router.GET("/targets/:id", a.GetTarget)
	router.GET("/stuck-targets", a.GetStuckTargets)

	router.POST("/metadata/:entity-id", a.UpdateMetadata)

	router.POST("/hooks", a.RegisterHook)
	router.GET("/hooks", a.ListHooks)
	router.GET("/hooks/:id", a.GetHook)
	router.PUT("/hooks/:id", a.UpdateHook)
	router.DELETE("/hooks/:id", a.DeleteHook)

	router.POST("/api-keys", a.CreateAPIKey)
	router.GET("/api-keys", a.ListAPIKeys)
	router.DELETE("/api-keys/:id", a.RevokeAPIKey)

	router.GET("/backup", a.BackupDB)
	router.GET("/backup-s3", a.BackupDBS3)

	router.POST("/search/:collection", a.Search)
	router.POST("/multi-search", a.MultiSearch)

	router.POST("/reindex", a.StartReindex)
	router.GET("/reindex/progress", a.GetReindexProgress)
	return a.router
}

func NewAPI(f *fedsub.Fedsub) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	r.Use(middleware.NewAuthMiddleware(f).Authenticate())

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	r.POST("/webhook", func(c *gin.Context) {
		var payload map[string]interface{}
		err := c.Bind(&payload)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(payload)
		c.JSON(200, "webhook received")
	})

	return &Api{fedsub: f, router: r}
}

func (a Api) Search(c *gin.Context) {
	collection, passed := c.Params.Get("collection")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection is required. pass id in the route /:collection"})
		return
	}

	var query api.SearchCollectionParams
	err := c.BindJSON(&query)
	if err != nil {
		return
	}

	resp, err := a.fedsub.Search(collection, &query)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) MultiSearch(c *gin.Context) {
	var searches api.MultiSearchSearchesParameter
	err := c.BindJSON(&searches)
	if err != nil {
		return
	}

	resp, err := a.fedsub.MultiSearch(&searches)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// respondError writes a service error with the status its error code maps to.
// Wrapped internal errors never reach the response body; structured details
// such as a cost breakdown do.
func respondError(c *gin.Context, err error) {
	if apiErr, ok := err.(apierror.APIError); ok {
		body := gin.H{"error": apiErr.Message}
		if _, wrapped := apiErr.Details.(error); apiErr.Details != nil && !wrapped {
			body["details"] = apiErr.Details
		}
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), body)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
