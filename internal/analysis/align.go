// SPDX-License-Identifier: MIT

package analysis

// Aligned is a set of traces resampled onto one shared timeline.
type Aligned struct {
	TimesMS []int64
	Names   []string
	Values  map[string][]float64
}

// Empty reports whether alignment produced no usable timeline.
func (a Aligned) Empty() bool { return len(a.TimesMS) == 0 }

// Align resamples every trace onto a common integer-millisecond timeline
// using last-value-carried-forward. The common range is the overlap of all
// traces; with no overlap it falls back to the broadest range. Traces with
// fewer than two samples make the result empty.
func Align(traces []Trace) Aligned {
	if len(traces) == 0 {
		return Aligned{}
	}
	for _, tr := range traces {
		if len(tr.TimesMS) < 2 {
			return Aligned{}
		}
	}

	start := tr0Start(traces)
	end := tr0End(traces)
	if start >= end {
		// No overlap: broadest range instead.
		start, end = traces[0].TimesMS[0], traces[0].TimesMS[len(traces[0].TimesMS)-1]
		for _, tr := range traces[1:] {
			if tr.TimesMS[0] < start {
				start = tr.TimesMS[0]
			}
			if last := tr.TimesMS[len(tr.TimesMS)-1]; last > end {
				end = last
			}
		}
	}
	if start >= end {
		return Aligned{}
	}

	n := int(end-start) + 1
	times := make([]int64, n)
	for i := range times {
		times[i] = start + int64(i)
	}

	out := Aligned{
		TimesMS: times,
		Values:  make(map[string][]float64, len(traces)),
	}
	for _, tr := range traces {
		out.Names = append(out.Names, tr.Name)
		out.Values[tr.Name] = resampleLVCF(tr, times)
	}
	return out
}

// tr0Start is max over traces of their first timestamp.
func tr0Start(traces []Trace) int64 {
	start := traces[0].TimesMS[0]
	for _, tr := range traces[1:] {
		if tr.TimesMS[0] > start {
			start = tr.TimesMS[0]
		}
	}
	return start
}

// tr0End is min over traces of their last timestamp.
func tr0End(traces []Trace) int64 {
	end := traces[0].TimesMS[len(traces[0].TimesMS)-1]
	for _, tr := range traces[1:] {
		if last := tr.TimesMS[len(tr.TimesMS)-1]; last < end {
			end = last
		}
	}
	return end
}

// resampleLVCF holds the most recent observation at each timeline step.
// Before a trace's first sample the first value is held.
func resampleLVCF(tr Trace, times []int64) []float64 {
	out := make([]float64, len(times))
	idx := 0
	for i, t := range times {
		for idx < len(tr.TimesMS)-1 && tr.TimesMS[idx+1] <= t {
			idx++
		}
		if tr.TimesMS[idx] > t {
			out[i] = tr.Values[0]
			continue
		}
		out[i] = tr.Values[idx]
	}
	return out
}
