// Package report renders the Results of a model search as a text table and as
// a comparison chart.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Summary writes one row per model in run order. The best model is marked
// with "*" and failed models show their error instead of metrics.
func Summary(w io.Writer, res *automl.Results) error {
	if res == nil {
		return errors.NewValueError("report.Summary", "results are nil")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\tMODEL\tTRAIN %[1]s\tTEST %[1]s\tTEST RMSE\tTEST R2\tCV SCORE\tFEATURES\tERROR\n", strings.ToUpper(res.Loss))
	for _, name := range res.Order {
		rr := res.Models[name]
		mark := ""
		if name == res.BestModel {
			mark = "*"
		}
		if rr.Failed() {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\t-\t%s\n", mark, name, oneLine(rr.Err))
			continue
		}
		cv := "-"
		if rr.CVScore != nil {
			cv = fmt.Sprintf("%.4f", *rr.CVScore)
		}
		m := rr.Metrics
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%s\t%d/%d\t\n",
			mark, name, m.TrainLoss, m.TestLoss, m.TestRMSE, m.TestR2, cv, rr.NFeaturesSelected, rr.OriginalFeatures)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "report.Summary")
	}

	losses := testLosses(res)
	info := res.DataInfo
	fmt.Fprintf(w, "\nrun %s: train=%d test=%d folds=%d, %d succeeded, %d failed\n",
		res.RunID, info.TrainSize, info.TestSize, info.NSplits, len(losses), len(res.Failed()))
	if len(losses) > 0 {
		mean, std := stat.MeanStdDev(losses, nil)
		if len(losses) == 1 {
			std = 0
		}
		fmt.Fprintf(w, "test %s across models: mean %.4f, std %.4f\n", res.Loss, mean, std)
	}
	if res.BestModel != "" {
		fmt.Fprintf(w, "best model: %s\n", res.BestModel)
	}
	return nil
}

// SaveLossChart draws a bar chart of the test loss of every successful model.
// The image format follows the extension of path (png, svg, pdf, ...).
func SaveLossChart(res *automl.Results, path string) error {
	if res == nil {
		return errors.NewValueError("report.SaveLossChart", "results are nil")
	}
	ok := res.Successful()
	if len(ok) == 0 {
		return errors.NewValueError("report.SaveLossChart", "no successful model to plot")
	}

	names := make([]string, len(ok))
	values := make(plotter.Values, len(ok))
	for i, rr := range ok {
		names[i] = rr.ModelName
		values[i] = rr.Metrics.TestLoss
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Test %s by model", strings.ToUpper(res.Loss))
	p.Y.Label.Text = res.Loss

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "report.SaveLossChart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(ok)+2) * vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save chart to %s", path)
	}
	return nil
}

func testLosses(res *automl.Results) []float64 {
	ok := res.Successful()
	out := make([]float64, len(ok))
	for i, rr := range ok {
		out[i] = rr.Metrics.TestLoss
	}
	return out
}

// oneLine keeps the first line of multi-line error messages.
func oneLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
