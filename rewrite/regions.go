package rewrite

// Region is a maximal run of changed lines: old[OldStart:OldEnd] was
// replaced by new[NewStart:NewEnd]. Either side may be empty.
type Region struct {
	OldStart, OldEnd int
	NewStart, NewEnd int
}

// maxDiffCells bounds the LCS table; larger middles are reported as one
// region.
const maxDiffCells = 4 << 20

// Regions returns the changed regions between two versions of a file, in
// order, using a longest common subsequence of lines.
func Regions(old, new []string) []Region {
	// Common prefix and suffix never need the table.
	pre := 0
	for pre < len(old) && pre < len(new) && old[pre] == new[pre] {
		pre++
	}
	suf := 0
	for suf < len(old)-pre && suf < len(new)-pre && old[len(old)-1-suf] == new[len(new)-1-suf] {
		suf++
	}
	a := old[pre : len(old)-suf]
	b := new[pre : len(new)-suf]
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	if len(a) == 0 || len(b) == 0 || (len(a)+1)*(len(b)+1) > maxDiffCells {
		return []Region{{OldStart: pre, OldEnd: pre + len(a), NewStart: pre, NewEnd: pre + len(b)}}
	}

	// lcs[i][j] is the LCS length of a[i:] and b[j:].
	w := len(b) + 1
	lcs := make([]int, (len(a)+1)*w)
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				lcs[i*w+j] = lcs[(i+1)*w+j+1] + 1
			case lcs[(i+1)*w+j] >= lcs[i*w+j+1]:
				lcs[i*w+j] = lcs[(i+1)*w+j]
			default:
				lcs[i*w+j] = lcs[i*w+j+1]
			}
		}
	}

	var regions []Region
	var open *Region
	flush := func() {
		if open != nil {
			regions = append(regions, *open)
			open = nil
		}
	}
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if i < len(a) && j < len(b) && a[i] == b[j] {
			flush()
			i++
			j++
			continue
		}
		if open == nil {
			open = &Region{OldStart: pre + i, OldEnd: pre + i, NewStart: pre + j, NewEnd: pre + j}
		}
		if j >= len(b) || (i < len(a) && lcs[(i+1)*w+j] >= lcs[i*w+j+1]) {
			i++
			open.OldEnd = pre + i
		} else {
			j++
			open.NewEnd = pre + j
		}
	}
	flush()
	return regions
}
