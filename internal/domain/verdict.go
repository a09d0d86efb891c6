package domain

// Outcome is the result of a guardrail check.
type Outcome string

const (
	OutcomePass      Outcome = "PASS"
	OutcomeReject    Outcome = "REJECT"
	OutcomeSanitized Outcome = "SANITIZED"
)

// ViolationCode identifies why a guardrail rejected or flagged text.
type ViolationCode string

const (
	ViolationEmptyInput    ViolationCode = "EMPTY_INPUT"
	ViolationTooLong       ViolationCode = "TOO_LONG"
	ViolationInjection     ViolationCode = "INJECTION"
	ViolationEmptyResponse ViolationCode = "EMPTY_RESPONSE"
	ViolationTruncated     ViolationCode = "TRUNCATED"
	ViolationLoopDetected  ViolationCode = "LOOP_DETECTED"
	ViolationSummarizeDue  ViolationCode = "SUMMARIZE_DUE"
)

// Verdict is the outcome of a single guardrail check. Created fresh per
// check and discarded after use.
type Verdict struct {
	Outcome    Outcome
	Sanitized  string // set when Outcome is SANITIZED
	Message    string // user-facing explanation on REJECT
	Violations []ViolationCode
}

// Pass returns a passing verdict.
func Pass() Verdict {
	return Verdict{Outcome: OutcomePass}
}

// Reject returns a rejecting verdict with a user-facing message.
func Reject(msg string, codes ...ViolationCode) Verdict {
	return Verdict{Outcome: OutcomeReject, Message: msg, Violations: codes}
}

// Sanitize returns a sanitized verdict carrying the cleaned text.
func Sanitize(text string, codes ...ViolationCode) Verdict {
	return Verdict{Outcome: OutcomeSanitized, Sanitized: text, Violations: codes}
}

// Has reports whether the verdict carries the given violation code.
func (v Verdict) Has(code ViolationCode) bool {
	for _, c := range v.Violations {
		if c == code {
			return true
		}
	}
	return false
}

// Rejected reports whether the check rejected the text.
func (v Verdict) Rejected() bool {
	return v.Outcome == OutcomeReject
}

// ToolResult is the uniform output of a capability handler.
type ToolResult struct {
	OK     bool
	Output string
	Err    string // diagnostic detail, never shown raw to the user
}

// ToolSuccess wraps a successful payload.
func ToolSuccess(output string) ToolResult {
	return ToolResult{OK: true, Output: output}
}

// ToolFailure wraps a failure with diagnostic detail.
func ToolFailure(detail string) ToolResult {
	return ToolResult{OK: false, Err: detail}
}
