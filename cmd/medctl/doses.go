package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"medtrack/internal/adapters/auth/jwtauth"
	"medtrack/internal/app"
	"medtrack/internal/domain/doses"
	"medtrack/internal/domain/medications"
)

// resolveDay devuelve medianoche de date (YYYY-MM-DD) en la zona de now; vacío = hoy.
func resolveDay(date string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(date) == "" {
		return now, nil
	}
	d, err := medications.ParseCivilDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return d.In(now.Location()), nil
}

// resolveScheduled ubica at (HH:MM) en el día pedido. at vacío devuelve nil.
func resolveScheduled(at, date string, now time.Time) (*time.Time, error) {
	if strings.TrimSpace(at) == "" {
		return nil, nil
	}
	t, err := medications.ParseTimeOfDay(at)
	if err != nil {
		return nil, err
	}
	day, err := resolveDay(date, now)
	if err != nil {
		return nil, err
	}
	st := t.On(day)
	return &st, nil
}

func (c *cli) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Registrar como omitidas las tomas vencidas sin respuesta",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Sweeper.RunOnce(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if c.asJSON {
					return printJSON(out, res)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"Medication", "Scheduled", "Recorded"})
				for _, e := range res.Events {
					tw.AppendRow(table.Row{e.MedicationID, e.ScheduledTime.Format("15:04"), e.Timestamp.Format("15:04")})
				}
				tw.AppendFooter(table.Row{"", "appended", res.Appended})
				tw.Render()
				fmt.Fprintf(out, "checked=%d pending=%d upcoming=%d skipped=%d\n", res.Checked, res.Pending, res.Upcoming, res.Skipped)
				return nil
			})
		},
	}
}

func (c *cli) agendaCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Tomas del día con estado y progreso",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				day, err := resolveDay(date, a.Now())
				if err != nil {
					return err
				}
				ag := a.Doses.Agenda(ctx, day)
				out := cmd.OutOrStdout()
				if c.asJSON {
					return printJSON(out, ag)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.SetTitle("Agenda " + ag.Date.String())
				tw.AppendHeader(table.Row{"Time", "Medication", "Dosage", "Status"})
				for _, e := range ag.Entries {
					tw.AppendRow(table.Row{e.Time.Label12h(), e.Name, e.Dosage, e.Status})
				}
				tw.AppendFooter(table.Row{"", "", "progress", fmt.Sprintf("%d/%d (%.0f%%)", ag.Taken, ag.Total, ag.Progress*100)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "fecha YYYY-MM-DD (default hoy)")
	return cmd
}

func (c *cli) doseCmd() *cobra.Command {
	dose := &cobra.Command{Use: "dose", Short: "Registrar tomas"}
	dose.AddCommand(c.doseTakeCmd())
	dose.AddCommand(c.doseMissCmd())
	return dose
}

func (c *cli) doseTakeCmd() *cobra.Command {
	var (
		at, date    string
		atScheduled bool
	)
	cmd := &cobra.Command{
		Use:   "take <medication-id>",
		Short: "Registrar una toma",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				scheduled, err := resolveScheduled(at, date, a.Now())
				if err != nil {
					return err
				}
				e, err := a.Doses.RecordDose(ctx, doses.RecordInput{
					MedicationID:  args[0],
					Taken:         true,
					ScheduledTime: scheduled,
					Source:        doses.SourceManual,
					AtScheduled:   atScheduled,
				})
				if err != nil {
					return err
				}
				return c.printEvent(cmd, e)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "hora programada HH:MM")
	cmd.Flags().StringVar(&date, "date", "", "fecha YYYY-MM-DD de la toma programada (default hoy)")
	cmd.Flags().BoolVar(&atScheduled, "at-scheduled", false, "usar la hora programada como timestamp si ya pasó")
	return cmd
}

func (c *cli) doseMissCmd() *cobra.Command {
	var at, date string
	cmd := &cobra.Command{
		Use:   "miss <medication-id>",
		Short: "Marcar una toma como omitida",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				scheduled, err := resolveScheduled(at, date, a.Now())
				if err != nil {
					return err
				}
				e, err := a.Doses.MarkMissed(ctx, args[0], scheduled, doses.SourceManual)
				if err != nil {
					return err
				}
				return c.printEvent(cmd, e)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "hora programada HH:MM (default la última vencida hoy)")
	cmd.Flags().StringVar(&date, "date", "", "fecha YYYY-MM-DD (default hoy)")
	return cmd
}

func (c *cli) printEvent(cmd *cobra.Command, e doses.Event) error {
	out := cmd.OutOrStdout()
	if c.asJSON {
		return printJSON(out, e)
	}
	state := "missed"
	if e.Taken {
		state = "taken"
	}
	scheduled := "-"
	if e.ScheduledTime != nil {
		scheduled = e.ScheduledTime.Format(time.RFC3339)
	}
	_, err := fmt.Fprintf(out, "%s %s scheduled=%s at=%s id=%s\n", e.MedicationID, state, scheduled, e.Timestamp.Format(time.RFC3339), e.ID)
	return err
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		date, medID string
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Historial de tomas, más reciente primero",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f := doses.HistoryFilter{MedicationID: medID, Limit: limit}
				if date != "" {
					d, err := medications.ParseCivilDate(date)
					if err != nil {
						return err
					}
					f.Date = &d
				}
				events := a.Doses.History(ctx, f)
				out := cmd.OutOrStdout()
				if c.asJSON {
					return printJSON(out, events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"When", "Medication", "Taken", "Scheduled", "Source"})
				for _, e := range events {
					scheduled := ""
					if e.ScheduledTime != nil {
						scheduled = e.ScheduledTime.Format("2006-01-02 15:04")
					}
					tw.AppendRow(table.Row{e.Timestamp.Format("2006-01-02 15:04"), e.MedicationID, e.Taken, scheduled, e.Source})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "fecha YYYY-MM-DD")
	cmd.Flags().StringVar(&medID, "medication", "", "filtrar por medicación")
	cmd.Flags().IntVar(&limit, "limit", 0, "máximo de eventos (0 = todos)")
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	var at, date string
	cmd := &cobra.Command{
		Use:   "status <medication-id>",
		Short: "Estado de una toma programada",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				scheduled, err := resolveScheduled(at, date, a.Now())
				if err != nil {
					return err
				}
				if scheduled == nil {
					return errors.New("--at is required")
				}
				st, err := a.Doses.DoseStatus(ctx, doses.StatusQuery{
					MedicationID:  args[0],
					ScheduledTime: *scheduled,
					Grace:         -1,
				})
				if err != nil {
					return err
				}
				if c.asJSON {
					return printJSON(cmd.OutOrStdout(), map[string]string{"status": string(st)})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), st)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "hora programada HH:MM")
	cmd.Flags().StringVar(&date, "date", "", "fecha YYYY-MM-DD (default hoy)")
	return cmd
}

func (c *cli) clearCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Borrar medicaciones e historial",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("refusing to clear without --force")
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Store.ClearAll(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "cleared")
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirmar el borrado")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var (
		subject, email string
		ttl            time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emitir un JWT de desarrollo firmado con auth.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			v, err := jwtauth.NewVerifier(cfg.Auth.JWTSecret)
			if err != nil {
				return err
			}
			tok, err := v.Issue(subject, email, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id (claim sub)")
	cmd.Flags().StringVar(&email, "email", "", "email opcional")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "vigencia del token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
