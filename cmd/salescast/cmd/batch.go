package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SeekerKids/forecast-prophet-kp/internal/di"
	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/internal/usecase"
)

var batchFlags struct {
	dataset    string
	categories []string
	branches   []string
	start      string
	end        string
	cutoff     string
	horizon    int
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a batch forecast and print the summary",
	Long: `Forecast every requested category, or every category with sales on all
days of the range when none is given, and export one workbook per item.

Examples:
  # All categories of the configured dataset
  salescast batch

  # Two categories for every branch
  salescast batch --categories MILK,SNACK --branches '*'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withToolkit(func(tk *di.Toolkit) error {
			plan, err := usecase.PlanFromRequest(models.BatchRequest{
				Dataset:     batchFlags.dataset,
				Categories:  batchFlags.categories,
				Branches:    batchFlags.branches,
				Start:       batchFlags.start,
				End:         batchFlags.end,
				Cutoff:      batchFlags.cutoff,
				HorizonDays: batchFlags.horizon,
			}, tk.Defaults)
			if err != nil {
				return err
			}
			summary, err := tk.Orchestrator.Execute(cmd.Context(), plan)
			if err != nil {
				return err
			}
			writeSummary(os.Stdout, summary)
			return nil
		})
	},
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFlags.dataset, "dataset", "", "dataset name (default from config)")
	f.StringSliceVar(&batchFlags.categories, "categories", nil, "categories to forecast (default: discover)")
	f.StringSliceVar(&batchFlags.branches, "branches", nil, "branches, or '*' for all")
	f.StringVar(&batchFlags.start, "start", "", "first training day YYYY-MM-DD")
	f.StringVar(&batchFlags.end, "end", "", "last day of data YYYY-MM-DD")
	f.StringVar(&batchFlags.cutoff, "cutoff", "", "evaluation split day YYYY-MM-DD")
	f.IntVar(&batchFlags.horizon, "horizon", 0, "forecast horizon in days")
}

func writeSummary(out io.Writer, s models.RunSummary) {
	fmt.Fprintf(out, "Run %s dataset=%s duration=%s\n\n", s.RunID, s.Dataset, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tBRANCH\tOUTCOME\tR2\tMAPE\tARTIFACT")
	for _, r := range s.Items {
		branch := r.Item.Branch
		if branch == "" {
			branch = "-"
		}
		msg := r.ArtifactPath
		if r.Outcome != models.OutcomeSuccess {
			msg = r.Message
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Item.Category, branch, r.Outcome, r.Evaluation.R2Label(), r.Evaluation.MAPELabel(), msg)
	}
	w.Flush()

	counts := s.Counts()
	fmt.Fprintf(out, "\n%d items:", len(s.Items))
	for _, o := range models.Outcomes {
		fmt.Fprintf(out, " %s=%d", o, counts[o])
	}
	fmt.Fprintln(out)
}
