package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mvp-joe/classpath-scanner/internal/storage"
	"github.com/spf13/cobra"
)

var scansCatalogFlag string

var scansCmd = &cobra.Command{
	Use:   "scans [scan-id]",
	Short: "List scans recorded in the catalog",
	Long: `Without arguments, scans lists every recorded scan, newest first.
Given a scan ID, it lists the classes that scan found with their class
file version and SHA-256.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScans,
}

func init() {
	rootCmd.AddCommand(scansCmd)
	scansCmd.Flags().StringVar(&scansCatalogFlag, "catalog", "", "SQLite catalog to read (overrides catalog.path)")
}

func runScans(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.Catalog.Path
	if scansCatalogFlag != "" {
		path = scansCatalogFlag
	}
	if path == "" {
		return fmt.Errorf("no catalog configured: pass --catalog or set catalog.path")
	}

	db, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	reader := storage.NewArtifactReader(db)
	if len(args) == 1 {
		return printArtifacts(cmd.OutOrStdout(), reader, args[0])
	}
	return printScans(cmd.OutOrStdout(), reader)
}

func printScans(out io.Writer, reader *storage.ArtifactReader) error {
	scans, err := reader.ListScans()
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		fmt.Fprintln(out, "No scans recorded")
		return nil
	}

	t := newTable("SCAN ID", "STARTED", "DURATION", "CLASSES", "PREFIXES")
	for _, s := range scans {
		t.Row(
			s.ID,
			s.StartedAt.Local().Format(time.DateTime),
			s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String(),
			formatNumber(s.ArtifactCount),
			strings.Join(s.Prefixes, " "),
		)
	}
	_, err = fmt.Fprintln(out, t.Render())
	return err
}

func printArtifacts(out io.Writer, reader *storage.ArtifactReader, scanID string) error {
	scan, err := reader.GetScan(scanID)
	if err != nil {
		return err
	}
	if scan == nil {
		return fmt.Errorf("scan %s not found", scanID)
	}
	artifacts, err := reader.ListArtifacts(scanID)
	if err != nil {
		return err
	}

	t := newTable("LOCATION", "VERSION", "SIZE", "SHA256")
	for _, a := range artifacts {
		version := "-"
		if a.MagicOK {
			version = fmt.Sprintf("%d.%d", a.MajorVersion, a.MinorVersion)
		}
		t.Row(a.Location, version, formatNumber(int(a.SizeBytes)), shortDigest(a.SHA256))
	}
	_, err = fmt.Fprintln(out, t.Render())
	return err
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("39"))

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
