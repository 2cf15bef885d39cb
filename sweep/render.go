package sweep

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Renderer turns a written plot descriptor into an image. Failures come back as
// RendererInvocationError and never invalidate aggregate files.
type Renderer interface {
	Render(ctx context.Context, spec PlotSpec, descriptor string) error
}

// NewRenderer returns the renderer selected by cfg.
func NewRenderer(cfg RendererConfig) (Renderer, error) {
	switch cfg.Kind {
	case RendererGnuplot, "":
		command := cfg.Command
		if command == "" {
			command = "gnuplot"
		}
		return &GnuplotRenderer{command: command}, nil
	case RendererGonum:
		return &GonumRenderer{Width: 6 * vg.Inch, Height: 4 * vg.Inch}, nil
	case RendererNone:
		return nopRenderer{}, nil
	}
	return nil, configErrorf("renderer.kind", "unknown renderer %q", cfg.Kind)
}

// GnuplotRenderer runs the external gnuplot binary on the descriptor, from the
// descriptor's directory.
type GnuplotRenderer struct {
	command string
}

func (g *GnuplotRenderer) Render(ctx context.Context, _ PlotSpec, descriptor string) error {
	cmd := exec.CommandContext(ctx, g.command, filepath.Base(descriptor))
	cmd.Dir = filepath.Dir(descriptor)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	logrus.Debugf("Starting %s %s", g.command, descriptor)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			err = errors.Wrap(err, msg)
		}
		return &RendererInvocationError{Descriptor: descriptor, Err: err}
	}
	return nil
}

// GonumRenderer draws the chart in-process as a PNG next to the descriptor's
// output path, using the series' records instead of reading the data files.
type GonumRenderer struct {
	Width, Height vg.Length
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// OutputPath is spec.Output, resolved against the descriptor's directory, with
// a .png extension.
func (g *GonumRenderer) OutputPath(spec PlotSpec, descriptor string) string {
	out := spec.Output
	if !filepath.IsAbs(out) {
		out = filepath.Join(filepath.Dir(descriptor), out)
	}
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".png"
}

func (g *GonumRenderer) Render(ctx context.Context, spec PlotSpec, descriptor string) error {
	if err := ctx.Err(); err != nil {
		return &RendererInvocationError{Descriptor: descriptor, Err: err}
	}
	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	for _, s := range spec.Series {
		if len(s.Records) == 0 {
			continue
		}
		pts := errorPoints{
			XYs:     make(plotter.XYs, len(s.Records)),
			YErrors: make(plotter.YErrors, len(s.Records)),
		}
		for i, r := range s.Records {
			pts.XYs[i].X = r.Utilization
			pts.XYs[i].Y = r.MeanResponseTime
			pts.YErrors[i].Low = r.StdDevResponseTime
			pts.YErrors[i].High = r.StdDevResponseTime
		}
		line, err := plotter.NewLine(pts.XYs)
		if err != nil {
			return &RendererInvocationError{Descriptor: descriptor, Err: errors.Wrapf(err, "series %q", s.Title)}
		}
		line.Color = plotutil.Color(s.Style)
		line.Width = vg.Points(float64(s.LineWidth) / 2)
		bars, err := plotter.NewYErrorBars(pts)
		if err != nil {
			return &RendererInvocationError{Descriptor: descriptor, Err: errors.Wrapf(err, "series %q", s.Title)}
		}
		bars.Color = plotutil.Color(s.Style)
		p.Add(line, bars)
		p.Legend.Add(s.Title, line)
	}
	// Fixed range, as the gnuplot descriptor sets it.
	p.Y.Min, p.Y.Max = spec.YMin, spec.YMax

	out := g.OutputPath(spec, descriptor)
	if err := p.Save(g.Width, g.Height, out); err != nil {
		return &RendererInvocationError{Descriptor: descriptor, Err: errors.Wrapf(err, "saving %s", out)}
	}
	logrus.Debugf("Rendered %s", out)
	return nil
}

type nopRenderer struct{}

func (nopRenderer) Render(context.Context, PlotSpec, string) error { return nil }
