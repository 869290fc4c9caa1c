package constants

// OutcomeStatus is the canonical status for rows in tool_invocations.
type OutcomeStatus string

// Stable values (store these exact strings in DB).
const (
	OutcomeSuccess OutcomeStatus = "SUCCESS" // persistence collaborator accepted the record
	OutcomeFailure OutcomeStatus = "FAILURE" // validation, precondition or persistence failure
)
