package canadensis

import "testing"

func TestFiltersCoverSubscriptions(t *testing.T) {
	rx := NewReceiver(7, nil)
	rx.Subscribe(TxKindMessage, 0xccc, 8, testTimeout)
	rx.Subscribe(TxKindRequest, 430, 8, testTimeout)
	filters := rx.Filters()
	if len(filters) != 2 {
		t.Fatalf("expected one subject and one service filter, got %d", len(filters))
	}

	match := func(id CanID) bool {
		for _, f := range filters {
			if f.Match(id) {
				return true
			}
		}
		return false
	}
	msgMeta := Metadata{Priority: PriorityNominal, TxKind: TxKindMessage, Port: 0xccc, Remote: NodeIDUnset}
	msgID, err := msgMeta.makeCanID(nil, 42, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !match(msgID) {
		t.Errorf("subscribed subject frame %#x must pass", uint32(msgID))
	}
	reqMeta := Metadata{Priority: PriorityHigh, TxKind: TxKindRequest, Port: 430, Remote: 7}
	reqID, err := reqMeta.makeCanID(nil, 42, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !match(reqID) {
		t.Errorf("request to the local node %#x must pass", uint32(reqID))
	}

	otherSubject := Metadata{Priority: PriorityNominal, TxKind: TxKindMessage, Port: 0xabc, Remote: NodeIDUnset}
	otherID, _ := otherSubject.makeCanID(nil, 42, 7)
	if match(otherID) {
		t.Errorf("unsubscribed subject frame %#x must not pass", uint32(otherID))
	}
	elsewhere := Metadata{Priority: PriorityHigh, TxKind: TxKindRequest, Port: 430, Remote: 9}
	elsewhereID, _ := elsewhere.makeCanID(nil, 42, 7)
	if match(elsewhereID) {
		t.Errorf("request for another node %#x must not pass", uint32(elsewhereID))
	}
}

func TestFiltersRecomputedOnChange(t *testing.T) {
	rx := NewReceiver(7, nil)
	rx.Subscribe(TxKindMessage, 1, 8, testTimeout)
	if n := len(rx.Filters()); n != 1 {
		t.Fatalf("expected 1 filter, got %d", n)
	}
	rx.Subscribe(TxKindMessage, 2, 8, testTimeout)
	if n := len(rx.Filters()); n != 2 {
		t.Fatalf("filter list must grow with subscriptions, got %d", n)
	}
	rx.Unsubscribe(TxKindMessage, 1)
	rx.Unsubscribe(TxKindMessage, 2)
	if n := len(rx.Filters()); n != 0 {
		t.Fatalf("filter list must shrink after unsubscribe, got %d", n)
	}
}

func TestServiceFilterSharedBetweenKinds(t *testing.T) {
	rx := NewReceiver(7, nil)
	rx.Subscribe(TxKindRequest, 430, 8, testTimeout)
	rx.Subscribe(TxKindResponse, 430, 8, testTimeout)
	if n := len(rx.Filters()); n != 1 {
		t.Errorf("one service port must need only one filter, got %d", n)
	}
}
