package alerts

import (
	"strconv"
	"strings"

	"github.com/hrvstack/hrvstack/pkg/types"
)

// evalCondition evaluates a rule condition string against a reading.
//
// Supported expressions (field operator value):
//
//	alpha1 < 0.5
//	alpha1 > 1.2
//	heart_rate > 180
//	artifact_pct > 5
//	window_fill < 200
//	zone == anaerobic
//	cert_days_left < 14
//
// Returns (fires, triggering value, evaluable). evaluable is false when the
// expression cannot be parsed or the field has no value in this reading —
// alpha1 and zone while the window is warming up, cert_days_left for
// sources without a certificate.
func evalCondition(cond string, r types.Reading) (bool, float64, bool) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0, false
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "zone":
		if op != "==" || r.Zone == types.ZoneUnknown {
			return false, 0, false
		}
		return string(r.Zone) == rhs, 0, true

	case "cert_days_left":
		if r.BridgeCert == nil {
			return false, 0, false
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0, false
		}
		v := float64(r.BridgeCert.DaysLeft)
		return compareFloat(v, op, threshold), v, true

	default:
		v, ok := numericField(field, r)
		if !ok {
			return false, 0, false
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0, false
		}
		return compareFloat(v, op, threshold), v, true
	}
}

// numericField maps a field name to its value in the reading. The second
// return is false when the field is unknown or has no value yet.
func numericField(field string, r types.Reading) (float64, bool) {
	switch field {
	case "alpha1":
		if r.Alpha1 == nil {
			return 0, false
		}
		return *r.Alpha1, true
	case "heart_rate":
		return float64(r.HeartRate), true
	case "artifact_pct":
		return r.ArtifactPct, true
	case "window_fill":
		return float64(r.WindowFill), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
