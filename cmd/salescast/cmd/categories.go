package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SeekerKids/forecast-prophet-kp/internal/di"
	"github.com/SeekerKids/forecast-prophet-kp/internal/domain/models"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/util"
)

var categoriesFlags struct {
	branch string
	start  string
	end    string
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories with sales on every day of a range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withToolkit(func(tk *di.Toolkit) error {
			start := util.ParseDateDefault(categoriesFlags.start, tk.Defaults.Start)
			end := util.ParseDateDefault(categoriesFlags.end, tk.Defaults.End)
			if end.Before(start) {
				return fmt.Errorf("end %s is before start %s", end.Format(util.DateLayout), start.Format(util.DateLayout))
			}
			cats, err := tk.Source.Categories(cmd.Context(), models.Scope{Dataset: tk.Defaults.Dataset, Branch: categoriesFlags.branch}, start, end)
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintln(os.Stdout, c)
			}
			fmt.Fprintf(os.Stderr, "%d categories\n", len(cats))
			return nil
		})
	},
}

func init() {
	f := categoriesCmd.Flags()
	f.StringVar(&categoriesFlags.branch, "branch", "", "branch id")
	f.StringVar(&categoriesFlags.start, "start", "", "first day YYYY-MM-DD")
	f.StringVar(&categoriesFlags.end, "end", "", "last day YYYY-MM-DD")
}
