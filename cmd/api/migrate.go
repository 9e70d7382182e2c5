package main

import (
	"github.com/EcrTech/FL-sub005/internal/adapter/repository/gormrepo"
	"github.com/EcrTech/FL-sub005/internal/infrastructure/db"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			gdb, err := db.OpenGorm(cfg, log)
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := gormrepo.Migrate(cmd.Context(), gdb); err != nil {
				return err
			}
			log.WithField("tables", len(gormrepo.Models())).Info("migrate: done")
			return nil
		},
	}
}
