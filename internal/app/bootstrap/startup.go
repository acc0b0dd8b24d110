// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/pagecms/internal/app/resources"
	apistatsstore "github.com/dalemusser/pagecms/internal/app/store/apistats"
	"github.com/dalemusser/pagecms/internal/app/store/audit"
	"github.com/dalemusser/pagecms/internal/app/system/tasks"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It loads the shared templates and starts the retention jobs. Returning a
// non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	// Note: Indexes are created in EnsureSchema via indexes.EnsureAll().

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the retention jobs and starts them. A zero
// retention keeps records forever and registers nothing.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	if appCfg.AuditRetention > 0 {
		taskRunner.Register(tasks.AuditRetentionJob(audit.New(deps.MongoDatabase), appCfg.AuditRetention, logger))
	}
	if appCfg.APIStatsRetention > 0 {
		taskRunner.Register(tasks.APIStatsRetentionJob(apistatsstore.New(deps.MongoDatabase), appCfg.APIStatsRetention, logger))
	}

	// Jobs outlive the startup context; Shutdown stops them.
	taskRunner.Start(context.Background())
}
