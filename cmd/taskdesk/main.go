package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskdesk/core/cmd/taskdesk/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskdesk",
		Short: "TaskDesk core service",
		Long:  `TaskDesk tracks tasks, sweeps overdue deadlines, schedules reminders and dispatches notifications.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewSweepCommand())
	rootCmd.AddCommand(commands.NewRemindCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
