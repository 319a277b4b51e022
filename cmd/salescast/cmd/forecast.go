package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SeekerKids/forecast-prophet-kp/internal/di"
	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/usecase"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

var forecastFlags struct {
	req    models.ForecastRequest
	asJSON bool
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast a single category",
	Long: `Run the pipeline for one category and print its evaluation and forecast.
Unlike batch, the first failure is returned as an error.

Examples:
  salescast forecast --category MILK --branch B01 --horizon 30`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withToolkit(func(tk *di.Toolkit) error {
			report, err := tk.Interactive.Forecast(cmd.Context(), forecastFlags.req)
			if err != nil {
				return err
			}
			if forecastFlags.asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			writeReport(os.Stdout, report)
			return nil
		})
	},
}

func init() {
	f := forecastCmd.Flags()
	f.StringVar(&forecastFlags.req.Category, "category", "", "category to forecast")
	f.StringVar(&forecastFlags.req.Branch, "branch", "", "branch id")
	f.StringVar(&forecastFlags.req.Start, "start", "", "first training day YYYY-MM-DD")
	f.StringVar(&forecastFlags.req.End, "end", "", "last day of data YYYY-MM-DD")
	f.StringVar(&forecastFlags.req.Cutoff, "cutoff", "", "evaluation split day YYYY-MM-DD")
	f.IntVar(&forecastFlags.req.HorizonDays, "horizon", 0, "forecast horizon in days")
	f.BoolVar(&forecastFlags.req.Full, "full", false, "include the full-axis prediction")
	f.BoolVar(&forecastFlags.asJSON, "json", false, "print the report as JSON")
	_ = forecastCmd.MarkFlagRequired("category")
}

func writeReport(out io.Writer, r *usecase.ForecastReport) {
	fmt.Fprintf(out, "%s dataset=%s cutoff=%s horizon=%d train=%d test=%d\n",
		r.Item, r.Dataset, r.Cutoff, r.HorizonDays, r.TrainRows, r.TestRows)
	fmt.Fprintf(out, "R2=%s MAPE=%s\n\n", r.Evaluation.R2Label(), r.Evaluation.MAPELabel())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "DATE\tPREDICTION\tLOWER\tUPPER\t")
	for _, row := range r.Forecast {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", row.Date.Format(util.DateLayout), num(row.Point), num(row.Lower), num(row.Upper))
	}
	w.Flush()
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%d", int64(v))
}
