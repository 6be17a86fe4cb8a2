package appbootstrap

import (
	"fmt"

	"ranger-ims/config"
	"ranger-ims/core/backup"
	"ranger-ims/core/store"
	"ranger-ims/core/utils"
)

// Runtime is the wired application: a record store root plus the
// background workers that run against it.
type Runtime struct {
	Root      store.Root
	BackupSvc *backup.Service
	Scheduler *backup.Scheduler
	Logger    *utils.Logger
}

func ComposeRuntime(cfg *config.AppConfig, logger *utils.Logger) (*Runtime, error) {
	var root store.Root
	var err error
	switch cfg.EffectiveBackend() {
	case config.BackendFile:
		root = store.NewFileRoot(cfg.DataDir, logger)
	case config.BackendSQLite:
		root, err = store.OpenSQLiteRoot(cfg.DBPath, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}

	backupSvc := backup.NewService(cfg.Backups, root, logger)
	scheduler, err := backup.NewScheduler(cfg.Backups, backupSvc)
	if err != nil {
		_ = root.Close()
		return nil, err
	}

	return &Runtime{
		Root:      root,
		BackupSvc: backupSvc,
		Scheduler: scheduler,
		Logger:    logger,
	}, nil
}

func (r *Runtime) Close() error {
	if r == nil || r.Root == nil {
		return nil
	}
	return r.Root.Close()
}
