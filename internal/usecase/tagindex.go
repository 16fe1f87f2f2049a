package usecase

// reconcile moves adID between tag buckets so the index matches newTags.
// It is the only writer of the tag index: create passes oldTags=nil, delete passes newTags=nil.
func reconcile(tx Tx, adID uint32, oldTags, newTags []string) error {
	oldSet := tagSet(oldTags)
	newSet := tagSet(newTags)

	for _, tag := range distinct(oldTags) {
		if _, keep := newSet[tag]; keep {
			continue
		}
		if err := tx.RemoveFromTag(tag, adID); err != nil {
			return err
		}
	}

	for _, tag := range distinct(newTags) {
		if _, indexed := oldSet[tag]; indexed {
			continue
		}
		if err := tx.AddToTag(tag, adID); err != nil {
			return err
		}
	}

	return nil
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// distinct keeps first occurrences in input order so index writes are deterministic.
func distinct(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
