// SPDX-License-Identifier: MIT

package analysis

// Results is the tagged variant returned by the engine: exactly one of the
// branch pointers is set, matching Kind.
type Results struct {
	Kind     string
	Single   *SingleResults
	Pairwise *PairwiseResults
	Multi    *MultiResults
}

// Result kinds.
const (
	KindSingle   = "single"
	KindPairwise = "pairwise"
	KindMulti    = "multi"
)

// Analyze dispatches on the number of selected traces.
func Analyze(traces []Trace) (Results, error) {
	switch len(traces) {
	case 0:
		return Results{}, ErrInsufficientData
	case 1:
		res := AnalyzeSingle(traces[0])
		return Results{Kind: KindSingle, Single: &res}, nil
	case 2:
		res, err := AnalyzePairwise(traces[0], traces[1])
		if err != nil {
			return Results{}, err
		}
		return Results{Kind: KindPairwise, Pairwise: &res}, nil
	default:
		res, err := AnalyzeMulti(traces)
		if err != nil {
			return Results{}, err
		}
		return Results{Kind: KindMulti, Multi: &res}, nil
	}
}
