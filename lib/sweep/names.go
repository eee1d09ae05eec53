package sweep

import (
	"fmt"
	"strings"
)

// FixtureName is the recorded-data file for control voltage v. It uses two
// zero-padded decimals, unlike the one-decimal sweep values.
func FixtureName(v float64) string {
	return fmt.Sprintf("out_s%05.2f.s2p", v)
}

// SnapshotName is the analyzer-side file name for the 2-port snapshot taken
// at control voltage v, e.g. 0.5 -> s0_5.s2p.
func SnapshotName(v float64) string {
	return "s" + strings.ReplaceAll(fmt.Sprintf("%.1f", v), ".", "_") + ".s2p"
}
