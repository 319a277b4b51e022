package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/services/calendar"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Manage the holiday, fasting and exam calendar",
}

var calendarInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the calendar workbook with the built-in seasons",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		err = calendar.InitDefault(cmd.Context(), cfg.Calendar.File, nil)
		if errors.Is(err, calendar.ErrWorkbookExists) {
			fmt.Fprintf(os.Stderr, "%s already exists, left unchanged\n", cfg.Calendar.File)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", cfg.Calendar.File)
		return nil
	},
}

var calendarAddHolidayCmd = &cobra.Command{
	Use:     "add-holiday DATE LABEL",
	Short:   "Add a named holiday",
	Example: `  salescast calendar add-holiday 2025-03-31 "Idul Fitri"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, ok := util.ParseDate(args[0])
		if !ok {
			return fmt.Errorf("invalid date %q", args[0])
		}
		editor, err := openEditor()
		if err != nil {
			return err
		}
		if err := editor.AddHoliday(cmd.Context(), date, args[1]); err != nil {
			return err
		}
		fmt.Printf("added holiday %s %s\n", date.Format(util.DateLayout), args[1])
		return nil
	},
}

var calendarAddPeriodCmd = &cobra.Command{
	Use:     "add-period KIND START END",
	Short:   "Add a Ramadan or Ujian period",
	Example: `  salescast calendar add-period Ramadan 2026-02-18 2026-03-19`,
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, ok := util.ParseDate(args[1])
		if !ok {
			return fmt.Errorf("invalid start date %q", args[1])
		}
		end, ok := util.ParseDate(args[2])
		if !ok {
			return fmt.Errorf("invalid end date %q", args[2])
		}
		editor, err := openEditor()
		if err != nil {
			return err
		}
		if err := editor.AddPeriod(cmd.Context(), models.PeriodKind(args[0]), start, end); err != nil {
			return err
		}
		fmt.Printf("added %s %s..%s\n", args[0], args[1], args[2])
		return nil
	},
}

var calendarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the calendar tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		editor, err := openEditor()
		if err != nil {
			return err
		}
		store, warnings := editor.Reload(cmd.Context())
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
		writeCalendar(os.Stdout, store)
		return nil
	},
}

func init() {
	calendarCmd.AddCommand(calendarInitCmd, calendarAddHolidayCmd, calendarAddPeriodCmd, calendarShowCmd)
}

// openEditor reads the calendar without connecting to any warehouse.
func openEditor() (*calendar.Editor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, err
	}
	return calendar.NewEditor(calendar.NewWorkbook(cfg.Calendar.File), l), nil
}

func writeCalendar(out io.Writer, store *calendar.EventStore) {
	snap := store.Snapshot()
	holidays, fasting, exams := store.Stats()
	fmt.Fprintf(out, "holidays=%d fasting_days=%d exam_days=%d\n\n", holidays, fasting, exams)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tSTART\tEND\tLABEL")
	for _, h := range snap.Holidays {
		d := h.Date.Format(util.DateLayout)
		fmt.Fprintf(w, "holiday\t%s\t%s\t%s\n", d, d, h.Label)
	}
	for _, kind := range []models.PeriodKind{models.PeriodFasting, models.PeriodExam} {
		for _, r := range snap.Periods(kind) {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", kind, r.Start.Format(util.DateLayout), r.End.Format(util.DateLayout))
		}
	}
	w.Flush()
}
