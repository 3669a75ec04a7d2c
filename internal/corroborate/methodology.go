package corroborate

// Methodology tags attached to financially-sensitive observations.
const (
	MethodologySECFiling         = "sec_filing"
	MethodologyPressVerified     = "press_verified"
	MethodologyTradeReported     = "trade_reported"
	MethodologyCommunityEstimate = "community_estimate"
)

// methodologyCompat declares which methodologies corroborate each other.
// The relation is many-to-many, not a total order: informal community
// estimates only speak to other informal estimates, never to
// primary-document figures.
var methodologyCompat = map[string]map[string]bool{
	MethodologySECFiling: {
		MethodologySECFiling:     true,
		MethodologyPressVerified: true,
	},
	MethodologyPressVerified: {
		MethodologyPressVerified: true,
		MethodologySECFiling:     true,
		MethodologyTradeReported: true,
	},
	MethodologyTradeReported: {
		MethodologyTradeReported: true,
		MethodologyPressVerified: true,
	},
	MethodologyCommunityEstimate: {
		MethodologyCommunityEstimate: true,
	},
}

// MethodologyComparable reports whether evidence gathered under method b
// may corroborate or contradict a change gathered under method a. Unknown
// methods are only comparable to themselves.
func MethodologyComparable(a, b string) bool {
	if a == b {
		return true
	}
	if m, ok := methodologyCompat[a]; ok {
		return m[b]
	}
	return false
}
