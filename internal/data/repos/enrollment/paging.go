package enrollment

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page request. Out-of-range values are clamped, not rejected.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.normalize()
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	return p.normalize().Size
}
