package main

import (
	"context"

	backups "github.com/fedsubhq/fedsub/internal/pg-backups"

	"github.com/sirupsen/logrus"

	"github.com/spf13/cobra"
)

func backupCommands(_ *fedsubInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "start fedsub database backup",
	}

	cmd.AddCommand(backupToCommands())
	cmd.AddCommand(backupToS3Commands())

	return cmd
}

func backupToCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "drive",
		Run: func(cmd *cobra.Command, args []string) {
			bm, err := backups.NewBackupManager()
			if err != nil {
				logrus.Error(err)
				return
			}
			if _, err := bm.BackupToDisk(context.Background()); err != nil {
				logrus.Error(err)
				return
			}
		},
	}

	return cmd
}

func backupToS3Commands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "s3",
		Run: func(cmd *cobra.Command, args []string) {
			bm, err := backups.NewBackupManager()
			if err != nil {
				logrus.Error(err)
				return
			}
			if err := bm.BackupToS3(context.Background()); err != nil {
				logrus.Error(err)
				return
			}
		},
	}

	return cmd
}
