package master

import (
	"fmt"

	"wacampaign/internal/suites"
)

const lowPassRate = 70

// GenerateRecommendations derives advice from already computed summaries only.
func GenerateRecommendations(r Report) []string {
	var recs []string
	if len(r.Suites) == 0 {
		return []string{"No suites were executed."}
	}

	var rateSum float64
	var durSum int64
	for _, s := range r.Suites {
		rateSum += float64(s.Summary.PassRate)
		durSum += s.DurationMS

		if s.Summary.PassRate < lowPassRate {
			recs = append(recs, fmt.Sprintf("%s pass rate is %d%%. Investigate the failing scenarios before launching campaigns.", s.Name, s.Summary.PassRate))
		}
		if s.Summary.Failed == 0 {
			continue
		}
		switch s.Name {
		case suites.NameSecurity:
			recs = append(recs, fmt.Sprintf("%d security test(s) failed. Resolve them before deploying to production.", s.Summary.Failed))
		case suites.NameWebhook:
			recs = append(recs, "Webhook processing failures put delivery tracking at risk. Verify the webhook endpoint and status handling.")
		case suites.NameAnalytics:
			recs = append(recs, "Analytics failures mean campaign reports may be inaccurate. Check log aggregation and rate calculations.")
		}
	}

	avg := rateSum / float64(len(r.Suites))
	switch {
	case avg >= 95:
		recs = append(recs, fmt.Sprintf("Excellent: average pass rate %.0f%%. The campaign system is ready for production.", avg))
	case avg >= 85:
		recs = append(recs, fmt.Sprintf("Good: average pass rate %.0f%%. Address the remaining failures before a full rollout.", avg))
	case avg >= 70:
		recs = append(recs, fmt.Sprintf("Moderate: average pass rate %.0f%%. Several areas need attention before production use.", avg))
	default:
		recs = append(recs, fmt.Sprintf("Poor: average pass rate %.0f%%. Significant fixes are required before production use.", avg))
	}

	if avgDur := float64(durSum) / float64(len(r.Suites)) / 1000; avgDur > 10 {
		recs = append(recs, fmt.Sprintf("Average suite duration is %.1fs. Consider shortening delivery waits or running suites selectively.", avgDur))
	}
	return recs
}
