package scheduler

import "sort"

// Allocate splits total images across specs by their proportions using the
// largest-remainder method: quotas are exact, the sum always equals total,
// and rounding error never exceeds one image per spec.
func Allocate(total int, proportions []float64) []int {
	n := len(proportions)
	if n == 0 || total <= 0 {
		return make([]int, n)
	}
	sum := 0.0
	for _, p := range proportions {
		if p > 0 {
			sum += p
		}
	}
	if sum == 0 {
		out := make([]int, n)
		out[0] = total
		return out
	}

	out := make([]int, n)
	type frac struct {
		idx int
		rem float64
	}
	fracs := make([]frac, 0, n)
	assigned := 0
	for i, p := range proportions {
		if p < 0 {
			p = 0
		}
		exact := float64(total) * p / sum
		out[i] = int(exact)
		assigned += out[i]
		fracs = append(fracs, frac{idx: i, rem: exact - float64(out[i])})
	}

	sort.SliceStable(fracs, func(a, b int) bool { return fracs[a].rem > fracs[b].rem })
	for i := 0; assigned < total; i = (i + 1) % n {
		out[fracs[i].idx]++
		assigned++
	}
	return out
}

// Interleave maps every image index to a spec index, cycling round-robin
// across specs that still have quota so no spec's images cluster at the end
// of the run.
func Interleave(quotas []int) []int {
	total := 0
	for _, q := range quotas {
		total += q
	}
	remaining := make([]int, len(quotas))
	copy(remaining, quotas)

	order := make([]int, 0, total)
	for len(order) < total {
		progressed := false
		for i := range remaining {
			if remaining[i] > 0 {
				order = append(order, i)
				remaining[i]--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return order
}
