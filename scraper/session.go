package scraper

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
)

// ContextID identifies one browsing context (tab) of a session.
type ContextID string

// Element is a handle to a DOM node in the focused context. Handles go
// stale when the context navigates; a stale handle makes every call fail.
// The zero Element stands for the whole document.
type Element struct {
	Ref  string
	node *cdp.Node
}

// Document is the handle for queries rooted at the document.
var Document = Element{}

// NewElement returns a handle that carries only a reference string. It is
// meant for Session implementations that are not backed by CDP.
func NewElement(ref string) Element {
	return Element{Ref: ref}
}

// IsDocument reports whether e is the document handle.
func (e Element) IsDocument() bool {
	return e.Ref == "" && e.node == nil
}

// Session is the browser automation capability set the crawler consumes.
// Every call except Current is blocking and bounded, and acts on the
// focused context.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error
	// Find returns the first match of selector below within.
	Find(ctx context.Context, within Element, selector string) (Element, error)
	// FindAll returns every match of selector in document order, possibly none.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	Text(ctx context.Context, el Element) (string, error)
	Attribute(ctx context.Context, el Element, name string) (string, error)
	// Type replaces the value of an input element, pressing Enter afterwards
	// when submit is set.
	Type(ctx context.Context, el Element, value string, submit bool) error

	// OpenContext opens url in a new context without focusing it.
	OpenContext(ctx context.Context, url string) (ContextID, error)
	Contexts(ctx context.Context) ([]ContextID, error)
	Current() ContextID
	SwitchTo(ctx context.Context, id ContextID) error
	// CloseCurrent closes the focused context. Nothing is focused afterwards
	// until SwitchTo is called.
	CloseCurrent(ctx context.Context) error

	Close() error
}
