package models

import "strings"

// Canonical sleep stage names.
const (
	SleepStageAwake    = "Awake"
	SleepStageAsleep   = "Asleep"
	SleepStageOutOfBed = "Out of Bed"
	SleepStageLight    = "Light"
	SleepStageDeep     = "Deep"
	SleepStageREM      = "REM"
)

// sleepStageNames maps lowercased stage names seen in session names and
// exports to canonical names.
var sleepStageNames = map[string]string{
	"awake":       SleepStageAwake,
	"wake":        SleepStageAwake,
	"sleep":       SleepStageAsleep,
	"asleep":      SleepStageAsleep,
	"out of bed":  SleepStageOutOfBed,
	"out-of-bed":  SleepStageOutOfBed,
	"light":       SleepStageLight,
	"light sleep": SleepStageLight,
	"core":        SleepStageLight,
	"deep":        SleepStageDeep,
	"deep sleep":  SleepStageDeep,
	"rem":         SleepStageREM,
	"rem sleep":   SleepStageREM,
}

// NormalizeSleepStage maps a stage name to its canonical form. Returns the
// canonical name and true if recognized, or the original string and false.
func NormalizeSleepStage(raw string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := sleepStageNames[lower]; ok {
		return canonical, true
	}
	return raw, false
}

// IsAsleep reports whether a canonical stage counts as sleep time.
func IsAsleep(stage string) bool {
	switch stage {
	case SleepStageAsleep, SleepStageLight, SleepStageDeep, SleepStageREM:
		return true
	}
	return false
}
