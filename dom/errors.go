package dom

// NotLoadedError reports a query issued against a document that has no
// parsed root. Queries on such a document fail loudly instead of
// returning an empty result set, so a forgotten load is not mistaken
// for "no matches".
type NotLoadedError struct {
	Op string
}

func (e *NotLoadedError) Error() string {
	return e.Op + ": document is not loaded"
}
