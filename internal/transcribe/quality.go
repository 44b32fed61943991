package transcribe

import "github.com/talkscribe/talkscribe/internal/engine"

// Classify labels a result as low-confidence when the mean per-segment
// average log-probability is weak or the engine reports a high no-speech
// probability. Both checks are independent; either firing is sufficient.
// Pure function: classifying the same result twice yields the same flag.
func (p Policy) Classify(res engine.Result) Quality {
	if res.NoSpeechProb > p.HighNoSpeechProb {
		return QualityLowConfidence
	}
	if len(res.SegmentLogProbs) > 0 {
		var sum float64
		for _, lp := range res.SegmentLogProbs {
			sum += lp
		}
		if sum/float64(len(res.SegmentLogProbs)) < p.LowConfidenceLogProb {
			return QualityLowConfidence
		}
	}
	return QualityNormal
}
