package pgw

// handleRS implements spec.md §4.6.3: a Router Solicitation is always
// forwarded toward the Ethernet segment (where the actual IPv6 router
// lives), translating its SLLAO if it came from the LowPan side; an RS
// from Ethernet or Local has no LowPan router to reach and is dropped.
func (p *NDProxy) handleRS(pkt []byte, incoming Interface) (act action, err error) {
	if incoming != LowPan {
		return dropAction, nil
	}

	out, err := p.Rewriter.Rewrite(pkt, incoming, Ethernet)
	if err != nil {
		return dropAction, err
	}

	return action{Verdict: emitVerdict, Outgoing: Ethernet, Pkt: out}, nil
}
