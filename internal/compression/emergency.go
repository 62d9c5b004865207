package compression

import "strings"

// TruncationMarker is appended to every emergency-truncated prompt.
const TruncationMarker = "[... truncated to fit length limit ...]"

// emergencyTruncate enforces the hard limit. Lines carrying a preserved
// keyword are kept first; other lines fill the remaining room in original
// order. The marker is always appended.
func emergencyTruncate(text string, keep keepSet, b Budget) string {
	marker := "\n" + TruncationMarker
	avail := b.HardLimit() - charLen(marker)
	if avail <= 0 {
		return truncateRunes(text, b.HardLimit())
	}

	lines := strings.Split(text, "\n")
	must := make([]bool, len(lines))
	var mustLines []string
	for i, line := range lines {
		if keep.matches(line) {
			must[i] = true
			mustLines = append(mustLines, line)
		}
	}

	mustBlock := strings.Join(mustLines, "\n")
	if charLen(mustBlock) > avail {
		// Generic lines are already gone; cut the must-keep block itself.
		return truncateRunes(mustBlock, avail) + marker
	}

	// Cost of a generic line counts its separator, an upper bound on what
	// joining actually adds.
	used := charLen(mustBlock)
	selected := make([]bool, len(lines))
	copy(selected, must)
	haveContent := len(mustLines) > 0
	for i, line := range lines {
		if must[i] || strings.TrimSpace(line) == "" {
			continue
		}
		cost := charLen(line) + 1
		if used+cost > avail {
			continue
		}
		selected[i] = true
		used += cost
		haveContent = true
	}

	if !haveContent {
		return strings.TrimRight(truncateRunes(text, avail), " \t\n") + marker
	}

	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if selected[i] {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n") + marker
}
