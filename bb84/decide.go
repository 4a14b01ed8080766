package bb84

// IsSecure reports whether an observed error rate is low enough to keep the
// key. A rate equal to the threshold is secure.
func IsSecure(errorRate, threshold float64) bool {
	return errorRate <= threshold
}
