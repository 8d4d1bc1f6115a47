package vacancy

// Outcome tags how a result was produced.
type Outcome int

const (
	// OutcomeEmpty means there was nothing to rank.
	OutcomeEmpty Outcome = iota
	// OutcomeUnscored means the vacancies are returned in fetch order without scores.
	OutcomeUnscored
	// OutcomeScored means the preferred strategy scored every vacancy.
	OutcomeScored
	// OutcomeDegraded means some or all records came from a fallback path.
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeUnscored:
		return "unscored"
	case OutcomeScored:
		return "scored"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

const (
	StrategyNone    = "none"
	StrategyLLM     = "llm"
	StrategyLexical = "lexical"
)

// Stats describes the LLM batches behind a result.
type Stats struct {
	Batches       int
	FailedBatches int
}

// AllFailed reports whether batches ran and every one of them degraded.
func (s Stats) AllFailed() bool {
	return s.Batches > 0 && s.FailedBatches == s.Batches
}

// Result is the tagged outcome of a ranking step.
type Result struct {
	Outcome   Outcome
	Strategy  string
	Stats     Stats
	Vacancies []*Scored
}

func Empty(strategy string) *Result {
	return &Result{Outcome: OutcomeEmpty, Strategy: strategy, Vacancies: []*Scored{}}
}

// Unscored returns the first n cards without scoring fields.
func Unscored(cards []*Vacancy, n int) *Result {
	items := Wrap(cards)
	if len(items) == 0 {
		return Empty(StrategyNone)
	}

	r := &Result{Outcome: OutcomeUnscored, Strategy: StrategyNone, Vacancies: items}
	r.Top(n)
	return r
}

func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Vacancies)
}

// Top truncates the result to its first n records. Non-positive n keeps everything.
func (r *Result) Top(n int) {
	if n > 0 && len(r.Vacancies) > n {
		r.Vacancies = r.Vacancies[:n]
	}
}

// IDs returns vacancy ids in result order.
func (r *Result) IDs() []string {
	ids := make([]string, 0, r.Len())
	for _, v := range r.Vacancies {
		ids = append(ids, v.ID)
	}
	return ids
}
