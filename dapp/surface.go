package dapp

import "sync"

// Element ids of the voting page.
const (
	FieldProposalDescription = "proposalDescription"
	FieldProposalIndexVote   = "proposalIndexVote"
	FieldProposalIndexGet    = "proposalIndexGet"
	FieldProposalDetails     = "proposalDetails"
)

// InputFields are the ids of the page's text inputs.
var InputFields = []string{FieldProposalDescription, FieldProposalIndexVote, FieldProposalIndexGet}

// Surface is the display the page handlers read their inputs from and write results to.
type Surface interface {
	// Value returns the current text of the element with the given id, or "" if there is none.
	Value(id string) string
	// SetText replaces the text of the element with the given id.
	SetText(id, text string)
}

var _ Surface = (*Form)(nil)

// Form is an in-memory Surface.
type Form struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewForm returns a form holding a copy of values.
func NewForm(values map[string]string) *Form {
	f := &Form{values: make(map[string]string, len(values))}
	for id, v := range values {
		f.values[id] = v
	}

	return f
}

// Value implements Surface.
func (f *Form) Value(id string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.values[id]
}

// SetText implements Surface.
func (f *Form) SetText(id, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[id] = text
}

// Values returns a copy of every element's text.
func (f *Form) Values() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]string, len(f.values))
	for id, v := range f.values {
		out[id] = v
	}

	return out
}
