package bridge

// OriginPolicy is the connection-open allow-list for the Origin header.
// Checked once per connection, before any frame is processed.
type OriginPolicy struct {
	allowed map[string]struct{}
}

func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: map[string]struct{}{}}
	for _, o := range origins {
		if o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// Allowed applies the rules in order: blank origin passes (non-browser
// client), empty list passes (policy disabled), wildcard passes, otherwise
// exact membership.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	if len(p.allowed) == 0 {
		return true
	}
	if _, ok := p.allowed["*"]; ok {
		return true
	}
	_, ok := p.allowed[origin]
	return ok
}
