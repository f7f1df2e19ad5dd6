package quota

import "time"

// Verdict is the closed set of outcomes an evaluation can produce. Exactly
// one variant is returned per call; infrastructure failures are reported as
// errors, never as verdicts.
type Verdict interface {
	verdict()
}

// Allowed permits one invoice creation. Remaining is how many more creations
// the daily cap admits after this one.
type Allowed struct {
	Remaining int
}

// DailyCapReached means today's allowance is exhausted. ResetAt is the start
// of the next calendar day in the server's local zone.
type DailyCapReached struct {
	Limit   int
	ResetAt time.Time
}

// MonthlyCapReached means this calendar month's free-tier allowance is
// exhausted.
type MonthlyCapReached struct{}

// FreeExpired means the one-year free entitlement has lapsed.
type FreeExpired struct{}

// Killed means the remote kill switch has disabled free-tier creation.
type Killed struct{}

func (Allowed) verdict()           {}
func (DailyCapReached) verdict()   {}
func (MonthlyCapReached) verdict() {}
func (FreeExpired) verdict()       {}
func (Killed) verdict()            {}
