package verdict

const (
	// StableThreshold is the slope above which a ranking counts as stable
	StableThreshold = 0.25
	// FairThreshold is the p-value above which a test counts as fair
	FairThreshold = 0.05
)

// IsStable reports whether a stability value exceeds StableThreshold
func IsStable(value float64) bool {
	return value > StableThreshold
}

// IsFair reports whether a p-value exceeds FairThreshold
func IsFair(value float64) bool {
	return value > FairThreshold
}

// Thresholds is the configurable form of the two classifiers. Both bounds are
// strict.
type Thresholds struct {
	Stable float64 `json:"stable" yaml:"stable"`
	Fair   float64 `json:"fair" yaml:"fair"`
}

// DefaultThresholds matches IsStable and IsFair
func DefaultThresholds() Thresholds {
	return Thresholds{Stable: StableThreshold, Fair: FairThreshold}
}

func (t Thresholds) IsStable(value float64) bool {
	return value > t.Stable
}

func (t Thresholds) IsFair(value float64) bool {
	return value > t.Fair
}
