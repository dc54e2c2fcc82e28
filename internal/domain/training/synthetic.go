package training

import "math/rand"

// Synthetic column names.
const (
	ColumnHoursStudied         = "hours_studied"
	ColumnAttendancePercent    = "attendance_percent"
	ColumnAssignmentsSubmitted = "assignments_submitted"
	ColumnScore                = "score"
)

// SyntheticPassMark is the lowest synthetic score labeled "Pass".
const SyntheticPassMark = 60

// SyntheticFeatures is the feature order of Synthesize.
var SyntheticFeatures = []string{ColumnHoursStudied, ColumnAttendancePercent, ColumnAssignmentsSubmitted}

const (
	maxHours       = 12
	minAttendance  = 50
	attendanceSpan = 50
	maxAssignments = 10
	noiseStdDev    = 5
)

// Synthesize generates n rows where
// score = 5*hours + 0.5*attendance + 2*assignments + N(0, 5), with
// pass_fail set from SyntheticPassMark.
func Synthesize(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible synthetic data

	hours := make([]float64, n)
	attendance := make([]float64, n)
	assignments := make([]float64, n)
	score := make([]float64, n)
	passFail := make([]string, n)
	for i := 0; i < n; i++ {
		hours[i] = rng.Float64() * maxHours
		attendance[i] = minAttendance + rng.Float64()*attendanceSpan
		assignments[i] = float64(rng.Intn(maxAssignments))
		score[i] = 5*hours[i] + 0.5*attendance[i] + 2*assignments[i] + rng.NormFloat64()*noiseStdDev
		passFail[i] = "Fail"
		if score[i] >= SyntheticPassMark {
			passFail[i] = "Pass"
		}
	}

	ds := NewDataset(n)
	ds.SetNumeric(ColumnHoursStudied, hours)
	ds.SetNumeric(ColumnAttendancePercent, attendance)
	ds.SetNumeric(ColumnAssignmentsSubmitted, assignments)
	ds.SetNumeric(ColumnScore, score)
	ds.SetText(ColumnPassFail, passFail)
	return ds
}
