// Package errors provides structured, actionable error messages for the
// optimist CLI. Print renders them for a terminal, a pipe or a JSON reader.
//
// Each error has a unique code (e.g., "C002") that maps to a short message,
// a detailed explanation and a category. Callers add a suggestion and wrap
// the underlying cause:
//
//	err := errors.New("C003").
//	    WithDetail("failRate is 1.5").
//	    WithSuggestion("Use a value between 0 and 1")
//
//	fmt.Print(err.Format(false))
//	// Output:
//	// ERROR C003: Invalid failure rate
//	//
//	//   failRate is 1.5
//	//
//	//   Hint: Use a value between 0 and 1
package errors
