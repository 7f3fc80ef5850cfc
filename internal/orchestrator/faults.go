package orchestrator

// faultOutcome is what the fault-accounting hysteresis (spec §4.4)
// decided for the current iteration.
type faultOutcome int

const (
	faultOutcomeNone     faultOutcome = iota // no change worth logging
	faultOutcomeRecovered                    // count_err just cleared after FIXED good iterations
	faultOutcomeFatal                        // count_err exceeded MAX_ERRORS
)

// faultCounter implements the count_err/count_ok hysteresis: a short
// burst of transient errors is normal, a sustained run triggers a fatal
// abort; FIXED consecutive good iterations are required to clear an
// error streak, preventing oscillation between failing and recovered.
type faultCounter struct {
	maxErrors int
	fixed     int

	countErr int
	countOK  int
}

func newFaultCounter(maxErrors, fixed int) *faultCounter {
	return &faultCounter{maxErrors: maxErrors, fixed: fixed}
}

// observe records whether this iteration had any sensor/control error
// (errImu, errGPS or a non-OK retval collapsed by the caller into one
// bool) and returns the resulting outcome.
func (f *faultCounter) observe(hadError bool) faultOutcome {
	if hadError {
		f.countErr++
		f.countOK = 0
		if f.countErr > f.maxErrors {
			return faultOutcomeFatal
		}
		return faultOutcomeNone
	}

	if f.countOK < f.fixed {
		f.countOK++
		if f.countOK == f.fixed && f.countErr > 0 {
			f.countErr = 0
			return faultOutcomeRecovered
		}
	}
	return faultOutcomeNone
}

// countErrors reports the current consecutive-error count, for logging.
func (f *faultCounter) countErrors() int { return f.countErr }
