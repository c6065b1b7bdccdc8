package weather

const (
	// MinAnalogs is the smallest analog set a tier must produce to be used.
	MinAnalogs = 10

	// MaxConfidence caps the match-count confidence.
	MaxConfidence = 100

	// FallbackConfidenceDay1 and FallbackConfidenceDay2 are reported when the
	// estimate falls back to the location's climatology.
	FallbackConfidenceDay1 = 30
	FallbackConfidenceDay2 = 25

	// RainThresholdPercent splits a probability into a rain / no-rain call.
	RainThresholdPercent = 50.0
)

// Window is a rectangular similarity window, inclusive on both ends.
type Window struct {
	SunshineHours float64
	HumidityPct   float64
	CloudOktas    float64
}

var (
	Day1Tight = Window{SunshineHours: 3, HumidityPct: 15, CloudOktas: 1}
	Day1Broad = Window{SunshineHours: 6, HumidityPct: 30, CloudOktas: 2}
	Day2Tight = Window{SunshineHours: 4, HumidityPct: 20, CloudOktas: 2}
	Day2Broad = Window{SunshineHours: 4, HumidityPct: 20, CloudOktas: 3}
)

type tier struct {
	basis  Basis
	window Window
}

var (
	day1Tiers = []tier{{BasisTight, Day1Tight}, {BasisBroad, Day1Broad}}
	day2Tiers = []tier{{BasisTight, Day2Tight}, {BasisBroad, Day2Broad}}
)

// MissingPolicy decides how unobserved features take part in matching.
type MissingPolicy int

const (
	// MissingAsZero treats an unobserved feature as a recorded zero.
	MissingAsZero MissingPolicy = iota
	// MissingExcluded drops any record with an unobserved feature.
	MissingExcluded
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingExcluded:
		return "exclude"
	default:
		return "zero"
	}
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithMissingPolicy sets the policy for unobserved features.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(e *Estimator) { e.policy = p }
}

// WithoutLookahead limits the history to records dated before the anchor.
func WithoutLookahead() Option {
	return func(e *Estimator) { e.noLookahead = true }
}

// Estimator produces analog-day rain forecasts. It holds no per-call state
// and is safe for concurrent use.
type Estimator struct {
	policy      MissingPolicy
	noLookahead bool
}

// NewEstimator creates an Estimator.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{policy: MissingAsZero}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the estimator's missing-feature policy.
func (e *Estimator) Policy() MissingPolicy {
	return e.policy
}

var defaultEstimator = NewEstimator()

// Estimate runs the default Estimator.
func Estimate(table *FeatureTable, anchor DailyRecord) (Forecast, error) {
	return defaultEstimator.Estimate(table, anchor)
}

// features is a record reduced to the values the windows compare.
type features struct {
	sunshine float64
	humidity float64
	cloud    float64
}

type analog struct {
	features
	rainedToday    bool
	rainedTomorrow bool
}

// Estimate forecasts rain for the two days after anchor from analog days in table.
func (e *Estimator) Estimate(table *FeatureTable, anchor DailyRecord) (Forecast, error) {
	if table.Len() == 0 {
		return Forecast{}, &InsufficientDataError{Location: table.nameOrEmpty()}
	}

	pool, rainy, labelled := e.history(table, anchor)
	climatology := func() (float64, error) {
		if labelled == 0 {
			return 0, &InsufficientDataError{Location: table.Location(), Records: table.Len()}
		}
		return 100 * float64(rainy) / float64(labelled), nil
	}

	var day1 DayForecast
	var day1Matches []analog
	anchorFeatures, anchorOK := e.resolve(anchor)
	if anchorOK {
		day1Matches, day1.Basis = search(pool, anchorFeatures, anchor.RainedToday, day1Tiers)
	} else {
		day1.Basis = BasisClimatology
	}
	if day1.Basis == BasisClimatology {
		p, err := climatology()
		if err != nil {
			return Forecast{}, err
		}
		day1.ProbabilityPercent = p
		day1.Confidence = FallbackConfidenceDay1
	} else {
		day1.ProbabilityPercent, day1.Confidence = score(day1Matches)
		day1.Matches = len(day1Matches)
	}

	// Partial matches from a fallback still seed day 2; the anchor stands in
	// only when day 1 matched nothing.
	day1Rain := day1.ProbabilityPercent > RainThresholdPercent
	proxy, proxyOK := anchorFeatures, anchorOK
	if len(day1Matches) > 0 {
		proxy, proxyOK = mean(day1Matches), true
	}

	var day2 DayForecast
	var day2Matches []analog
	if proxyOK {
		day2Matches, day2.Basis = search(pool, proxy, day1Rain, day2Tiers)
	} else {
		day2.Basis = BasisClimatology
	}
	if day2.Basis == BasisClimatology {
		p, err := climatology()
		if err != nil {
			return Forecast{}, err
		}
		day2.ProbabilityPercent = p
		day2.Confidence = FallbackConfidenceDay2
	} else {
		day2.ProbabilityPercent, day2.Confidence = score(day2Matches)
		day2.Matches = len(day2Matches)
	}

	return Forecast{Day1: day1, Day2: day2}, nil
}

// history builds the candidate analogs and counts the labelled records for
// the unconditional rain-tomorrow rate. Unlabelled records take part in neither.
func (e *Estimator) history(table *FeatureTable, anchor DailyRecord) (pool []analog, rainy, labelled int) {
	cutoff := truncateDay(anchor.Date)
	pool = make([]analog, 0, len(table.records))
	for _, r := range table.records {
		if r.RainedTomorrow == nil {
			continue
		}
		if e.noLookahead && !r.Date.Before(cutoff) {
			break
		}
		labelled++
		if *r.RainedTomorrow {
			rainy++
		}
		f, ok := e.resolve(r)
		if !ok {
			continue
		}
		pool = append(pool, analog{features: f, rainedToday: r.RainedToday, rainedTomorrow: *r.RainedTomorrow})
	}
	return pool, rainy, labelled
}

func (e *Estimator) resolve(r DailyRecord) (features, bool) {
	if e.policy == MissingExcluded &&
		(r.SunshineHours == nil || r.HumidityAfternoon == nil || r.CloudCoverAfternoon == nil) {
		return features{}, false
	}
	var f features
	if r.SunshineHours != nil {
		f.sunshine = *r.SunshineHours
	}
	if r.HumidityAfternoon != nil {
		f.humidity = *r.HumidityAfternoon
	}
	if r.CloudCoverAfternoon != nil {
		f.cloud = float64(*r.CloudCoverAfternoon)
	}
	return f, true
}

// search evaluates tiers in order and returns the first analog set with at
// least MinAnalogs members. A wider tier replaces a narrower one, it is never
// merged with it. When no tier qualifies the basis is BasisClimatology and
// the last tier's matches, possibly empty, are returned.
func search(pool []analog, center features, rainedToday bool, tiers []tier) ([]analog, Basis) {
	var matches []analog
	for _, t := range tiers {
		matches = match(pool, center, rainedToday, t.window)
		if len(matches) >= MinAnalogs {
			return matches, t.basis
		}
	}
	return matches, BasisClimatology
}

func match(pool []analog, c features, rainedToday bool, w Window) []analog {
	var out []analog
	for _, a := range pool {
		if a.rainedToday != rainedToday {
			continue
		}
		if within(a.sunshine, c.sunshine, w.SunshineHours) &&
			within(a.humidity, c.humidity, w.HumidityPct) &&
			within(a.cloud, c.cloud, w.CloudOktas) {
			out = append(out, a)
		}
	}
	return out
}

func within(v, center, width float64) bool {
	return v >= center-width && v <= center+width
}

func score(matches []analog) (probability float64, confidence int) {
	rainy := 0
	for _, a := range matches {
		if a.rainedTomorrow {
			rainy++
		}
	}
	probability = 100 * float64(rainy) / float64(len(matches))
	return probability, min(len(matches), MaxConfidence)
}

// mean synthesises the expected next-day features from an analog set.
func mean(matches []analog) features {
	var sum features
	for _, a := range matches {
		sum.sunshine += a.sunshine
		sum.humidity += a.humidity
		sum.cloud += a.cloud
	}
	n := float64(len(matches))
	return features{sunshine: sum.sunshine / n, humidity: sum.humidity / n, cloud: sum.cloud / n}
}

func (t *FeatureTable) nameOrEmpty() string {
	if t == nil {
		return ""
	}
	return t.location
}
