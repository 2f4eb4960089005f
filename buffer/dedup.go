package buffer

import "zero/game"

type occurrences struct {
	first    Example
	policy   []float64
	value    float64
	policies int // occurrences that carried a policy
	count    int
}

// FlattenAndDeduplicate merges examples sharing a key: the policy becomes the
// element-wise mean of the occurrences that carry one and the value becomes
// the mean over all occurrences. Output follows first-occurrence order.
func (b *ReplayBuffer) FlattenAndDeduplicate() []Example {
	index := make(map[game.Key]*occurrences)
	var order []game.Key

	for _, r := range b.records {
		for _, ex := range r.Examples {
			o, ok := index[ex.Key]
			if !ok {
				o = &occurrences{first: ex}
				index[ex.Key] = o
				order = append(order, ex.Key)
			}
			if len(ex.Policy) > 0 {
				if o.policy == nil {
					o.policy = make([]float64, len(ex.Policy))
				}
				for i, p := range ex.Policy {
					o.policy[i] += float64(p)
				}
				o.policies++
			}
			o.value += float64(ex.Value)
			o.count++
			o.first.Generation = max(o.first.Generation, ex.Generation)
		}
	}

	merged := make([]Example, 0, len(order))
	for _, key := range order {
		o := index[key]
		if o.count == 0 {
			panic("dedup key has no recorded occurrences")
		}
		ex := o.first
		ex.Value = float32(o.value / float64(o.count))
		if o.policies > 0 {
			policy := make([]float32, len(o.policy))
			for i, p := range o.policy {
				policy[i] = float32(p / float64(o.policies))
			}
			ex.Policy = policy
		}
		merged = append(merged, ex)
	}
	return merged
}
