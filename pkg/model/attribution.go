package model

// BlockAttribution holds the blocks a proposer produced and which of them were empty.
type BlockAttribution struct {
	Blocks      []uint64
	EmptyBlocks []uint64
}

func (a *BlockAttribution) Add(block uint64, empty bool) {
	a.Blocks = append(a.Blocks, block)
	if empty {
		a.EmptyBlocks = append(a.EmptyBlocks, block)
	}
}

// Attribution is keyed by normalized proposer address.
type Attribution map[string]*BlockAttribution

func (a Attribution) Add(proposer string, block uint64, empty bool) {
	entry, ok := a[proposer]
	if !ok {
		entry = &BlockAttribution{}
		a[proposer] = entry
	}
	entry.Add(block, empty)
}

// Merge appends every entry of other into a.
func (a Attribution) Merge(other Attribution) {
	for proposer, o := range other {
		entry, ok := a[proposer]
		if !ok {
			entry = &BlockAttribution{}
			a[proposer] = entry
		}
		entry.Blocks = append(entry.Blocks, o.Blocks...)
		entry.EmptyBlocks = append(entry.EmptyBlocks, o.EmptyBlocks...)
	}
}

// Counts returns the total and empty block counts of a proposer, zero when absent.
func (a Attribution) Counts(proposer string) (int, int) {
	entry, ok := a[proposer]
	if !ok {
		return 0, 0
	}
	return len(entry.Blocks), len(entry.EmptyBlocks)
}
