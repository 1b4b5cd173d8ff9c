package model

// Term is a taxonomy term row.  Only the legacy user group taxonomy is
// read by this service; its Description carries an encoded payload.
type Term struct {
	ID          uint64 // terms.term_id
	Taxonomy    string // terms.taxonomy
	Slug        string // terms.slug
	Name        string // terms.name
	Description string // terms.description
}
