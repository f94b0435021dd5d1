package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the channel tables and exit",
	Run:   migrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func migrate(_ *cobra.Command, _ []string) {
	logrus.Info("[MIGRATION] Ensuring channel, branding and test history tables...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := initStorage(ctx); err != nil {
		logrus.Fatalf("[MIGRATION] %v", err)
	}
	StopApp()
	logrus.Info("[MIGRATION] Done")
}
