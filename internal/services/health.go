package services

import (
	"fmt"
	"log"

	"github.com/noteshare-io/noteshare/internal/config"
	"github.com/noteshare-io/noteshare/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Mail         string            `json:"mail"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// HealthCheck reports database and mail relay reachability. Object storage is
// exercised per request and intentionally not probed here; an unreachable CDN
// degrades uploads but never the whole service.
func HealthCheck(cfg *config.Config, db *gorm.DB) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Status = "unhealthy"
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database connection error: %v", err)
		log.Printf("Health check failed - database connection: %v", err)
	} else {
		if err := sqlDB.Ping(); err != nil {
			result.Status = "unhealthy"
			result.Database = "unreachable"
			result.Details["database_ping_error"] = err.Error()
			result.ErrorMessage = fmt.Sprintf("Database ping failed: %v", err)
			log.Printf("Health check failed - database ping: %v", err)
		} else {
			result.Database = "ok"
			result.Details["database_type"] = cfg.DBType
			result.Details["database_name"] = cfg.DBDatabase
		}
	}

	// Check mail relay connectivity
	if err := utils.PingSMTP(cfg.SMTPHost, cfg.SMTPPort); err != nil {
		result.Status = "unhealthy"
		result.Mail = "unreachable"
		result.Details["mail_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("SMTP ping failed: %v", err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; SMTP ping failed: %v", err)
		}
		log.Printf("Health check failed - smtp ping: %v", err)
	} else {
		result.Mail = "ok"
		result.Details["smtp_host"] = cfg.SMTPHost
	}

	if result.Status == "healthy" {
		log.Println("Health check passed - all systems operational")
	}

	return result
}
