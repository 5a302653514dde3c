package model

type OutcomeKind int

const (
	// OutcomeReply carries exactly one user-visible reply
	OutcomeReply OutcomeKind = iota
	// OutcomeSuppressed means the gate rejected the message. It is not an
	// error and carries no reply text, only a reason for operators.
	OutcomeSuppressed
	// OutcomeFailed carries a reason for the caller; the pipeline only
	// reaches this state on programmer error, never on degraded I/O
	OutcomeFailed
)

// Outcome is the tri-state result of running one message through the
// orchestration engine.
type Outcome struct {
	Kind   OutcomeKind
	Text   string
	Reason string
}

func NewReply(text string) Outcome {
	return Outcome{Kind: OutcomeReply, Text: text}
}

func NewSuppressed(reason string) Outcome {
	return Outcome{Kind: OutcomeSuppressed, Reason: reason}
}

func NewFailed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}
