package reconcile

// txnTally counts verified-matching files per upload transaction.
type txnTally struct {
	counts map[int64]int
}

func newTxnTally() *txnTally {
	return &txnTally{counts: make(map[int64]int)}
}

func (t *txnTally) add(txnID int64) {
	t.counts[txnID]++
}

// consensus returns the transaction id with the highest count, 0 when
// nothing was tallied. Ties break toward the lowest transaction id so
// repeated passes over the same archive state always agree.
func (t *txnTally) consensus() int64 {
	var best int64
	bestCount := 0
	for id, n := range t.counts {
		if n > bestCount || (n == bestCount && bestCount > 0 && id < best) {
			best = id
			bestCount = n
		}
	}
	return best
}
