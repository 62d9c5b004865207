// Package compression shrinks assembled generation prompts to a character budget.
//
// A prompt passes through an ordered list of strategies. The first three are
// lossless rewrites (condensing verbose phrasing, terse bullets, removing
// illustrative asides) and run whenever the prompt is above its target length.
// The remaining three are lossy and gated by the Budget thresholds:
//
//   - aggressive trim (duplicate lines, overlong lines) above the warning threshold
//   - section pruning above the warning threshold and 130% of the target
//   - emergency truncation above the hard limit
//
// Lines that contain a keyword of a caller-supplied preserve fact are never
// dropped by a lossy strategy. The output never exceeds the hard limit.
//
// # Usage
//
//	budget, err := compression.NewBudget(2400, 4096, 3200)
//	if err != nil {
//	    return err
//	}
//	svc, err := compression.NewService(compression.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	res, err := svc.Optimize(ctx, prompt, budget, factSet.Facts())
//
// Optimize is also available as a pure function for callers that do not need
// telemetry.
package compression
