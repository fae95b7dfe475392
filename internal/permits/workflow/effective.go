package workflow

// EffectiveStatus is the status users see for a request: the linked report's
// evaluation when a report exists, otherwise the request's own status.
// Every read path goes through this function.
func EffectiveStatus(requestStatus Evaluation, reportEvaluation *Evaluation) Evaluation {
	if reportEvaluation != nil {
		return *reportEvaluation
	}
	return requestStatus
}
