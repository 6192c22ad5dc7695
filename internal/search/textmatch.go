package search

// foldByte lower-cases a single ASCII byte; non-ASCII bytes pass through
// unchanged, matching the scalar reference's code-unit semantics.
func foldByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// ContainsScalar is the reference case-insensitive substring matcher:
// one byte at a time, no lookahead tricks. It is the ground truth
// ContainsFolded is checked against.
func ContainsScalar(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	if len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if matchAt(haystack, needle, i) {
			return true
		}
	}
	return false
}

func matchAt(haystack, needle string, start int) bool {
	for j := 0; j < len(needle); j++ {
		if foldByte(haystack[start+j]) != foldByte(needle[j]) {
			return false
		}
	}
	return true
}

// ContainsFolded is the "SIMD-accelerated" substring matcher's portable
// fallback: it scans one byte at a time for the needle's first byte and
// only then compares the rest of the needle at that position. Case-
// sensitive matching compares bytes exactly; case-insensitive matching
// folds ASCII and sends needles shorter than 4 bytes to ContainsScalar,
// per the spec's short-needle rule.
func ContainsFolded(haystack, needle string, caseSensitive bool) bool {
	if !caseSensitive {
		return containsFoldedCI(haystack, needle)
	}
	return containsExact(haystack, needle)
}

func containsExact(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	if len(needle) > len(haystack) {
		return false
	}
	first := needle[0]
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i] != first {
			continue
		}
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func containsFoldedCI(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	if len(needle) < 4 {
		return ContainsScalar(haystack, needle)
	}
	firstFold := foldByte(needle[0])
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if foldByte(haystack[i]) != firstFold {
			continue
		}
		if matchAt(haystack, needle, i) {
			return true
		}
	}
	return false
}
