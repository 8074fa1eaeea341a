package api

import (
	"net/http"

	backups "github.com/fedsubhq/fedsub/internal/pg-backups"
	"github.com/gin-gonic/gin"
)

func (a Api) BackupDB(c *gin.Context) {
	manager, err := backups.NewBackupManager()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	path, err := manager.BackupToDisk(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"message": "backup successful", "path": path})
}

func (a Api) BackupDBS3(c *gin.Context) {
	manager, err := backups.NewBackupManager()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err = manager.BackupToS3(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, "backup successful")
}
