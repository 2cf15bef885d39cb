package sweep

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// idealWireValue is how the ideal baseline is encoded on the simulator command
// line and in file names.
const idealWireValue = -1.0

const idealKeyword = "ideal"

// ProbeRatio is one member of the probe-ratio sweep axis: either the ideal
// baseline (no probing, zero network delay) or a positive probes-per-task ratio.
type ProbeRatio struct {
	ideal bool
	value float64
}

// Ideal returns the no-probing baseline.
func Ideal() ProbeRatio { return ProbeRatio{ideal: true, value: idealWireValue} }

// Ratio returns a probing ratio. Validation happens in Axes.Validate.
func Ratio(v float64) ProbeRatio { return ProbeRatio{value: v} }

// ParseProbeRatio accepts "ideal", a number, or the legacy -1 sentinel.
func ParseProbeRatio(s string) (ProbeRatio, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, idealKeyword) {
		return Ideal(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ProbeRatio{}, errors.Wrapf(err, "parsing probe ratio %q", s)
	}
	if v == idealWireValue {
		return Ideal(), nil
	}
	return Ratio(v), nil
}

func (r ProbeRatio) IsIdeal() bool { return r.ideal }

// Value is the numeric ratio. For the ideal baseline it is the wire sentinel.
func (r ProbeRatio) Value() float64 { return r.value }

// String renders the ratio the way result identifiers spell it: "1.0", "1.2",
// "-1.0" for the ideal baseline.
func (r ProbeRatio) String() string {
	s := strconv.FormatFloat(r.value, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Fixed renders the ratio with six decimals, used by aggregate file names and
// the simulator's probes_ratio parameter.
func (r ProbeRatio) Fixed() string {
	return strconv.FormatFloat(r.value, 'f', 6, 64)
}

// Title is the human-readable plot legend entry.
func (r ProbeRatio) Title() string {
	if r.ideal {
		return "Ideal"
	}
	return "Probes/Tasks = " + r.String()
}

func (r *ProbeRatio) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: probe ratio must be a scalar", node.Line)
	}
	parsed, err := ParseProbeRatio(node.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", node.Line)
	}
	*r = parsed
	return nil
}

func (r ProbeRatio) MarshalYAML() (interface{}, error) {
	if r.ideal {
		return idealKeyword, nil
	}
	return r.value, nil
}
