package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ranger-ims/config"
	"ranger-ims/core/appbootstrap"
	"ranger-ims/core/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	event := flag.String("event", "", "event to export (default: all events)")
	out := flag.String("out", "", "override the backup output directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *out != "" {
		cfg.Backups.Path = *out
	}
	cfg.Backups.Enabled = true

	logger := utils.NewLogger()
	logger.SetLevelName(cfg.LogLevel)

	rt, err := appbootstrap.ComposeRuntime(cfg, logger)
	if err != nil {
		logger.Errorf("compose runtime: %v", err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx := context.Background()
	if *event != "" {
		path, err := rt.BackupSvc.ExportEvent(ctx, *event)
		if err != nil {
			logger.Errorf("export event %s: %v", *event, err)
			os.Exit(1)
		}
		fmt.Println(path)
		return
	}
	if err := rt.BackupSvc.ExportAll(ctx); err != nil {
		logger.Errorf("export: %v", err)
		os.Exit(1)
	}
}
