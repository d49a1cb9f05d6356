package canadensis

// Hardware acceptance filter computation. A driver applies these to its CAN
// peripheral or socket so the node is not woken for irrelevant traffic. The
// receiver re-validates every frame, so filters are an optimization, never a
// correctness requirement.

// Filter is a mask/match pair over extended CAN identifiers. A frame passes
// when (canID & Mask) == ID.
type Filter struct {
	ID   uint32
	Mask uint32
}

// Match reports whether the frame identifier passes the filter.
func (f Filter) Match(id CanID) bool { return uint32(id)&f.Mask == f.ID }

// subjectFilter matches all message frames on one subject, from any source,
// anonymous or not.
func subjectFilter(subject PortID) Filter {
	return Filter{
		ID:   uint32(subject) << offset_SubjectID,
		Mask: FLAG_SERVICE_NOT_MESSAGE | SUBJECT_ID_MAX<<offset_SubjectID,
	}
}

// serviceFilter matches request and response frames on one service that are
// addressed to the local node.
func serviceFilter(service PortID, local NodeID) Filter {
	return Filter{
		ID: FLAG_SERVICE_NOT_MESSAGE |
			uint32(service)<<offset_ServiceID |
			uint32(local)<<offset_DstNodeID,
		Mask: FLAG_SERVICE_NOT_MESSAGE |
			SERVICE_ID_MAX<<offset_ServiceID |
			NODE_ID_MAX<<offset_DstNodeID,
	}
}

// Filters returns the acceptance filter list covering the current
// subscription set. The list is recomputed only after a subscription change;
// the driver must re-apply it whenever it observes a new list.
func (r *Receiver) Filters() []Filter {
	if !r.filtersStale {
		return r.filters
	}
	var out []Filter
	for port := range r.subs[TxKindMessage] {
		out = append(out, subjectFilter(port))
	}
	if r.Local.IsSet() {
		// One service filter covers both requests and responses on a
		// port; the request/response flag is left unmasked.
		seen := make(map[PortID]bool)
		for kind := TxKindResponse; kind <= TxKindRequest; kind++ {
			for port := range r.subs[kind] {
				if !seen[port] {
					seen[port] = true
					out = append(out, serviceFilter(port, r.Local))
				}
			}
		}
	}
	r.filters = out
	r.filtersStale = false
	return out
}
