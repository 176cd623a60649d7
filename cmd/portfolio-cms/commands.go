package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/config"
)

// withServices loads configuration, builds the services and runs fn.
func withServices(cmd *cobra.Command, fn func(*config.Services) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	services, err := cfg.BuildService(cmd.Context(), logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer services.Close()
	return fn(services)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			holder := &config.Services{}
			defer holder.Close()
			repo, err := cfg.BuildRepository(cmd.Context(), holder)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}

			m, ok := repo.(portfoliocms.Migrator)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s database has no schema to migrate\n", cfg.DatabaseType)
				return nil
			}
			if err := m.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.DatabaseType)
			return nil
		},
	}
}

// NewVersionsCommand creates the versions command group
func NewVersionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Manage content versions",
	}

	cmd.AddCommand(newVersionsListCommand())
	cmd.AddCommand(newVersionsCreateCommand())
	cmd.AddCommand(newVersionsRestoreCommand())
	cmd.AddCommand(newVersionsDeleteCommand())
	cmd.AddCommand(newVersionsCleanupCommand())
	cmd.AddCommand(newVersionsBackupCommand())

	return cmd
}

func newVersionsListCommand() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List versions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(s *config.Services) error {
				versions, err := s.Content.ListVersions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), versions)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tACTIVE\tCREATED\tNAME")
				for _, v := range versions {
					active := ""
					if v.IsActive {
						active = "*"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.ID, active, v.CreatedAt.Local().Format(time.DateTime), v.Name)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", portfoliocms.DefaultVersionListLimit, "maximum number of versions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON including snapshots")
	return cmd
}

func newVersionsCreateCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the live content as the active version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(s *config.Services) error {
				v, err := s.Content.CreateVersion(cmd.Context(), name, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created version %d\n", v.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "version name")
	return cmd
}

func newVersionsRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the live content with a version snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVersionID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd, func(s *config.Services) error {
				if err := s.Content.RestoreVersion(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored version %d\n", id)
				return nil
			})
		},
	}
}

func newVersionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVersionID(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd, func(s *config.Services) error {
				if err := s.Content.DeleteVersion(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted version %d\n", id)
				return nil
			})
		},
	}
}

func newVersionsCleanupCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete all but the newest versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(s *config.Services) error {
				deleted, err := s.Content.CleanupOldVersions(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d versions\n", deleted)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "versions to keep (default: VERSION_RETENTION)")
	return cmd
}

func newVersionsBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Create an emergency backup of the live content",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(s *config.Services) error {
				v, err := s.Content.CreateEmergencyBackup(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created backup %d (%s)\n", v.ID, v.Name)
				return nil
			})
		},
	}
}

// NewContentCommand creates the content command group
func NewContentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect homepage content",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print the structured homepage as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(s *config.Services) error {
				content, err := s.Content.GetStructuredContent(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), content)
			})
		},
	})

	return cmd
}

func parseVersionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid version id %q", raw)
	}
	return id, nil
}
