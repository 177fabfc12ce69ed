package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/regshell/internal/database"
	"github.com/saltyorg/regshell/internal/logging"
)

var errAuditDisabled = errors.New("audit log is disabled (set --audit-db, audit.path or REGSHELL_AUDIT_DB)")

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent procedure invocations from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := historyDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			invocations, err := db.ListInvocations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(invocations) == 0 {
				fmt.Println("No invocations recorded.")
				return nil
			}
			fmt.Println(historyTable(invocations))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of entries to show")

	cmd.AddCommand(newHistoryPruneCmd())
	return cmd
}

func newHistoryPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit entries older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			db, err := historyDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			cutoff := time.Now().Add(-olderThan)
			n, err := db.PruneInvocations(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			if n > 0 {
				if err := db.Vacuum(); err != nil {
					log.Warn().Err(err).Msg("Failed to vacuum audit database")
				}
			}
			if err := db.Optimize(); err != nil {
				log.Warn().Err(err).Msg("Failed to optimize audit database")
			}

			fmt.Printf("Pruned %d entries older than %s.\n", n, cutoff.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of entries to delete (e.g. 720h)")

	return cmd
}

// historyDB opens the audit log. History does not need database credentials.
func historyDB(cmd *cobra.Command) (*database.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logging.Apply(verbosity, logging.Options{Console: os.Stderr, Quiet: true, File: cfg.Log})

	if cfg.Audit.Path == "" {
		return nil, errAuditDisabled
	}
	if _, err := os.Stat(cfg.Audit.Path); err != nil {
		return nil, fmt.Errorf("audit database %s: %w", cfg.Audit.Path, err)
	}
	return openAudit(cfg)
}

func historyTable(invocations []*database.Invocation) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	failed := cell.Foreground(lipgloss.Color("196"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "SOURCE", "PROCEDURE", "ARGS", "STATUS", "CODE", "MS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 4 && row >= 0 && row < len(invocations) && invocations[row].Status != database.StatusOK {
				return failed
			}
			return cell
		})

	for _, inv := range invocations {
		t.Row(
			inv.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			inv.Source,
			inv.Procedure,
			strings.Join(inv.Args, ", "),
			string(inv.Status),
			inv.ErrorCode,
			fmt.Sprint(inv.DurationMS),
		)
	}
	return t.Render()
}
