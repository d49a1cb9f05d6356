package canadensis

// TransferIDLedger hands out transfer IDs for outgoing request transfers,
// one counter per possible destination node. The array layout gives O(1)
// access and a fixed memory bound without a keyed map. The zero value is
// ready to use; all counters start at zero.
//
// The ledger is owned exclusively by the Requester that embeds it; there is
// no shared mutable access from outside.
type TransferIDLedger struct {
	ids [nodeCount]TID
}

// GetAndIncrement returns the next transfer ID for the given destination and
// advances the stored counter modulo the transfer-ID space. There is no way
// to observe a counter without consuming it.
func (l *TransferIDLedger) GetAndIncrement(destination NodeID) TID {
	if !destination.IsSet() {
		return 0
	}
	current := l.ids[destination]
	l.ids[destination] = (current + 1) & TRANSFER_ID_MAX
	return current
}
