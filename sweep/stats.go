package sweep

import (
	"gonum.org/v1/gonum/stat"
)

// MeanStdDev returns the sample mean and the unbiased (n-1) standard deviation
// of xs. A single sample has zero deviation; an empty slice yields zeros.
func MeanStdDev(xs []float64) (mean, std float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}
