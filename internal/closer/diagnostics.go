package closer

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DiagnosticKind classifies a Diagnostic
type DiagnosticKind uint8

const (
	TopologyAnomaly     DiagnosticKind = iota // more than two ends share a node
	OrientationMismatch                       // start-start or end-end join
	LonelyTerminal                            // end shared with no other way
	DanglingReference                         // way refers to a missing node
	DistanceRejected                          // end too far from the bounds
	TraversalAnomaly                          // boundary walk out of order
	Unresolved                                // way not part of any loop
	InvalidWay                                // way too short to use
	InvariantViolation                        // internal bookkeeping failed
)

var kindNames = [...]string{
	TopologyAnomaly:     "topology_anomaly",
	OrientationMismatch: "orientation_mismatch",
	LonelyTerminal:      "lonely_terminal",
	DanglingReference:   "dangling_reference",
	DistanceRejected:    "distance_rejected",
	TraversalAnomaly:    "traversal_anomaly",
	Unresolved:          "unresolved",
	InvalidWay:          "invalid_way",
	InvariantViolation:  "invariant_violation",
}

// Kinds lists every diagnostic kind
func Kinds() []DiagnosticKind {
	out := make([]DiagnosticKind, len(kindNames))
	for i := range kindNames {
		out[i] = DiagnosticKind(i)
	}
	return out
}

func (k DiagnosticKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("DiagnosticKind(%d)", uint8(k))
}

// Severity is the log level a kind is reported at. InvariantViolation is a
// programming error; everything else describes the input data.
func (k DiagnosticKind) Severity() zapcore.Level {
	switch k {
	case InvariantViolation:
		return zapcore.ErrorLevel
	case LonelyTerminal:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

// Diagnostic is one observation made while closing. Way is the OSM ID of the
// way involved, or 0.
type Diagnostic struct {
	Kind     DiagnosticKind
	Severity zapcore.Level
	Way      int64
	Message  string
}

func (d Diagnostic) String() string {
	if d.Way != 0 {
		return fmt.Sprintf("%s: way %d: %s", d.Kind, d.Way, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

func (c *Closer) report(kind DiagnosticKind, way int64, format string, args ...any) {
	d := Diagnostic{
		Kind:     kind,
		Severity: kind.Severity(),
		Way:      way,
		Message:  fmt.Sprintf(format, args...),
	}
	c.diags = append(c.diags, d)

	if ce := c.log.Check(d.Severity, d.Message); ce != nil {
		fields := []zap.Field{zap.Stringer("kind", kind)}
		if way != 0 {
			fields = append(fields, zap.Int64("way_id", way))
		}
		ce.Write(fields...)
	}
}

// CountDiagnostics tallies diagnostics by kind
func CountDiagnostics(diags []Diagnostic) map[DiagnosticKind]int {
	counts := make(map[DiagnosticKind]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}
