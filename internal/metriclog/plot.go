package metriclog

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Curve file names inside the run directory.
const (
	ValPlotFile  = "val_error.png"
	EvalPlotFile = "eval_error.png"
)

// Plot regenerates both error curves in dir from the full history. Each
// file contains only its own series.
func Plot(history []Record, dir string) error {
	val := make(plotter.XYs, len(history))
	eval := make(plotter.XYs, len(history))
	for i, rec := range history {
		val[i] = plotter.XY{X: float64(rec.Iteration), Y: rec.ValError}
		eval[i] = plotter.XY{X: float64(rec.Iteration), Y: rec.EvalError}
	}
	if err := savePlot(filepath.Join(dir, ValPlotFile), "Validation error", val, color.RGBA{B: 200, A: 255}); err != nil {
		return err
	}
	return savePlot(filepath.Join(dir, EvalPlotFile), "Eval error", eval, color.RGBA{R: 220, G: 120, A: 255})
}

func savePlot(path, title string, xys plotter.XYs, c color.Color) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())

	if len(xys) > 0 {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		line.Color = c
		p.Add(line)
	}

	// Render to a temporary file so readers never see a partial image.
	tmp := path + ".tmp.png"
	if err := p.Save(6*vg.Inch, 4*vg.Inch, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
