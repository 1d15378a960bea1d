package feature

// RemoveDuplicates culls correspondences that are not injective in either
// image: if a correspondence shares its A-side point with any other entry,
// or its B-side point with any other entry, every involved correspondence
// is dropped. Duplicate matches for a given interest point usually
// indicate a poor match.
//
// The lists must be parallel. Surviving correspondences keep their
// relative order. Pure function; the inputs are not modified.
func RemoveDuplicates(a, b []InterestPoint) ([]InterestPoint, []InterestPoint) {
	outA := []InterestPoint{}
	outB := []InterestPoint{}

	for i := range a {
		bad := false
		for j := range a {
			if i != j && (a[i].SamePosition(a[j]) || b[i].SamePosition(b[j])) {
				bad = true
				break
			}
		}
		if !bad {
			outA = append(outA, a[i])
			outB = append(outB, b[i])
		}
	}
	return outA, outB
}
