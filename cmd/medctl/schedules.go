package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"medtrack/internal/app"
	"medtrack/internal/domain/medications"
)

// scheduleFile es el documento YAML de import/export.
type scheduleFile struct {
	Schedules []scheduleDoc `yaml:"schedules"`
}

type scheduleDoc struct {
	ID              string   `yaml:"id,omitempty"`
	Name            string   `yaml:"name"`
	Dosage          string   `yaml:"dosage,omitempty"`
	Color           string   `yaml:"color,omitempty"`
	Times           []string `yaml:"times"`
	StartDate       string   `yaml:"start_date"`
	Duration        string   `yaml:"duration,omitempty"`
	ReminderEnabled bool     `yaml:"reminder_enabled"`
	CurrentSupply   int      `yaml:"current_supply"`
	TotalSupply     int      `yaml:"total_supply"`
	RefillAt        int      `yaml:"refill_at"`
	RefillReminder  bool     `yaml:"refill_reminder"`
	LastRefillDate  string   `yaml:"last_refill_date,omitempty"`
}

func toDoc(s medications.Schedule) scheduleDoc {
	d := scheduleDoc{
		ID:              s.ID,
		Name:            s.Name,
		Dosage:          s.Dosage,
		Color:           s.Color,
		StartDate:       s.StartDate.String(),
		Duration:        s.Duration.String(),
		ReminderEnabled: s.ReminderEnabled,
		CurrentSupply:   s.CurrentSupply,
		TotalSupply:     s.TotalSupply,
		RefillAt:        s.RefillAt,
		RefillReminder:  s.RefillReminder,
	}
	for _, t := range s.SortedTimes() {
		d.Times = append(d.Times, t.String())
	}
	if s.LastRefillDate != nil {
		d.LastRefillDate = s.LastRefillDate.String()
	}
	return d
}

func (d scheduleDoc) toSchedule() (medications.Schedule, error) {
	s := medications.Schedule{
		ID:              strings.TrimSpace(d.ID),
		Name:            d.Name,
		Dosage:          d.Dosage,
		Color:           d.Color,
		ReminderEnabled: d.ReminderEnabled,
		CurrentSupply:   d.CurrentSupply,
		TotalSupply:     d.TotalSupply,
		RefillAt:        d.RefillAt,
		RefillReminder:  d.RefillReminder,
	}
	for _, raw := range d.Times {
		t, err := medications.ParseTimeOfDay(raw)
		if err != nil {
			return medications.Schedule{}, fmt.Errorf("schedule %q: %w", d.Name, err)
		}
		s.DoseTimes = append(s.DoseTimes, t)
	}
	start, err := medications.ParseCivilDate(d.StartDate)
	if err != nil {
		return medications.Schedule{}, fmt.Errorf("schedule %q: start_date: %w", d.Name, err)
	}
	s.StartDate = start
	if s.Duration, err = medications.ParseDuration(d.Duration); err != nil {
		return medications.Schedule{}, fmt.Errorf("schedule %q: %w", d.Name, err)
	}
	if strings.TrimSpace(d.LastRefillDate) != "" {
		lr, err := medications.ParseCivilDate(d.LastRefillDate)
		if err != nil {
			return medications.Schedule{}, fmt.Errorf("schedule %q: last_refill_date: %w", d.Name, err)
		}
		s.LastRefillDate = &lr
	}
	return s, nil
}

func decodeSchedules(r io.Reader) ([]medications.Schedule, error) {
	var f scheduleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	out := make([]medications.Schedule, 0, len(f.Schedules))
	for _, d := range f.Schedules {
		s, err := d.toSchedule()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func encodeSchedules(w io.Writer, items []medications.Schedule) error {
	f := scheduleFile{Schedules: make([]scheduleDoc, 0, len(items))}
	for _, s := range items {
		f.Schedules = append(f.Schedules, toDoc(s))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

func (c *cli) scheduleCmd() *cobra.Command {
	sc := &cobra.Command{Use: "schedule", Short: "Administrar medicaciones"}
	sc.AddCommand(c.scheduleListCmd())
	sc.AddCommand(c.scheduleImportCmd())
	sc.AddCommand(c.scheduleExportCmd())
	return sc
}

func (c *cli) scheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Listar medicaciones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items := a.Medications.List(ctx)
				out := cmd.OutOrStdout()
				if c.asJSON {
					return printJSON(out, items)
				}
				today := a.Now()
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"ID", "Name", "Dosage", "Times", "Start", "Duration", "Supply", "Active"})
				for _, s := range items {
					times := make([]string, 0, len(s.DoseTimes))
					for _, t := range s.SortedTimes() {
						times = append(times, t.String())
					}
					supply := fmt.Sprintf("%d/%d", s.CurrentSupply, s.TotalSupply)
					if s.NeedsRefill() {
						supply += " (refill)"
					}
					tw.AppendRow(table.Row{s.ID, s.Name, s.Dosage, strings.Join(times, " "), s.StartDate, s.Duration, supply, s.Active(today)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) scheduleImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Importar medicaciones desde YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			items, err := decodeSchedules(r)
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				for _, s := range items {
					saved, err := a.Medications.Import(ctx, s)
					if err != nil {
						return fmt.Errorf("import %q: %w", s.Name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "imported %s %s\n", saved.ID, saved.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "archivo YAML (- = stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) scheduleExportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exportar medicaciones a YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items := a.Medications.List(ctx)
				if file == "" || file == "-" {
					return encodeSchedules(cmd.OutOrStdout(), items)
				}
				f, err := os.Create(file)
				if err != nil {
					return err
				}
				if err := encodeSchedules(f, items); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "archivo destino (default stdout)")
	return cmd
}
