package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"covid-protein-crawler/config"
	"covid-protein-crawler/utils"
)

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromeSession implements Session on top of one chromedp-driven Chrome
// process. Each browsing context is a chromedp tab context.
type ChromeSession struct {
	cfg      config.Config
	cancel   context.CancelFunc
	tabs     map[ContextID]tab
	original ContextID
	active   ContextID
}

var _ Session = (*ChromeSession)(nil)

// NewChromeSession starts Chrome with the allocator options derived from
// cfg and focuses its first tab.
func NewChromeSession(parent context.Context, cfg config.Config) (*ChromeSession, error) {
	allocCtx, cancelAlloc := utils.NewAllocator(parent, cfg)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))

	// The first Run allocates the browser; it must see the tab context
	// itself, not a timeout child, or the browser dies with the child.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	id := ContextID(chromedp.FromContext(tabCtx).Target.TargetID)
	return &ChromeSession{
		cfg: cfg,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		tabs:     map[ContextID]tab{id: {ctx: tabCtx, cancel: cancelTab}},
		original: id,
		active:   id,
	}, nil
}

// run executes actions on the focused tab, bounded by timeout and by ctx.
func (s *ChromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, ok := s.tabs[s.active]
	if !ok {
		return errors.New("no focused browsing context")
	}
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (e Element) nodeIDs() ([]cdp.NodeID, error) {
	if e.node == nil {
		return nil, fmt.Errorf("element %q is not backed by a DOM node", e.Ref)
	}
	return []cdp.NodeID{e.node.NodeID}, nil
}

func wrapNode(n *cdp.Node) Element {
	return Element{Ref: strconv.FormatInt(int64(n.NodeID), 10), node: n}
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.cfg.NavigateTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *ChromeSession) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (s *ChromeSession) Find(ctx context.Context, within Element, selector string) (Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if !within.IsDocument() {
		if within.node == nil {
			return Element{}, fmt.Errorf("find %s: element %q is not backed by a DOM node", selector, within.Ref)
		}
		opts = append(opts, chromedp.FromNode(within.node))
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return Element{}, fmt.Errorf("find %s: %w", selector, err)
	}
	if len(nodes) == 0 {
		return Element{}, fmt.Errorf("find %s: no match", selector)
	}
	return wrapNode(nodes[0]), nil
}

func (s *ChromeSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, s.cfg.ElementTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	); err != nil {
		return nil, fmt.Errorf("find all %s: %w", selector, err)
	}
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = wrapNode(n)
	}
	return out, nil
}

func (s *ChromeSession) Text(ctx context.Context, el Element) (string, error) {
	ids, err := el.nodeIDs()
	if err != nil {
		return "", err
	}
	var text string
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Text(ids, &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return text, nil
}

// Attribute reads the JavaScript property called name, so "href" comes
// back as an absolute URL.
func (s *ChromeSession) Attribute(ctx context.Context, el Element, name string) (string, error) {
	ids, err := el.nodeIDs()
	if err != nil {
		return "", err
	}
	var value string
	if err := s.run(ctx, s.cfg.ElementTimeout,
		chromedp.JavascriptAttribute(ids, name, &value, chromedp.ByNodeID),
	); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}

func (s *ChromeSession) Type(ctx context.Context, el Element, value string, submit bool) error {
	ids, err := el.nodeIDs()
	if err != nil {
		return err
	}
	keys := value
	if submit {
		keys += kb.Enter
	}
	if err := s.run(ctx, s.cfg.ElementTimeout,
		chromedp.SetValue(ids, "", chromedp.ByNodeID),
		chromedp.SendKeys(ids, keys, chromedp.ByNodeID),
	); err != nil {
		return fmt.Errorf("type %q: %w", value, err)
	}
	return nil
}

func (s *ChromeSession) OpenContext(ctx context.Context, url string) (ContextID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tabCtx, cancel := chromedp.NewContext(s.tabs[s.original].ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return "", fmt.Errorf("open context: %w", err)
	}
	id := ContextID(chromedp.FromContext(tabCtx).Target.TargetID)
	s.tabs[id] = tab{ctx: tabCtx, cancel: cancel}

	navCtx, cancelNav := context.WithTimeout(tabCtx, s.cfg.NavigateTimeout)
	defer cancelNav()
	stop := context.AfterFunc(ctx, cancelNav)
	defer stop()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return id, fmt.Errorf("navigate %s: %w", url, err)
	}
	return id, nil
}

func (s *ChromeSession) Contexts(ctx context.Context) ([]ContextID, error) {
	listCtx, cancel := context.WithTimeout(s.tabs[s.original].ctx, s.cfg.ElementTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	infos, err := chromedp.Targets(listCtx)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	var ids []ContextID
	for _, info := range infos {
		if info.Type == "page" {
			ids = append(ids, ContextID(info.TargetID))
		}
	}
	return ids, nil
}

func (s *ChromeSession) Current() ContextID {
	return s.active
}

func (s *ChromeSession) SwitchTo(ctx context.Context, id ContextID) error {
	if _, ok := s.tabs[id]; !ok {
		// A context this session did not open, e.g. a popup.
		tabCtx, cancel := chromedp.NewContext(s.tabs[s.original].ctx, chromedp.WithTargetID(target.ID(id)))
		if err := chromedp.Run(tabCtx); err != nil {
			cancel()
			return fmt.Errorf("attach context %s: %w", id, err)
		}
		s.tabs[id] = tab{ctx: tabCtx, cancel: cancel}
	}
	s.active = id
	if err := s.run(ctx, s.cfg.ElementTimeout, page.BringToFront()); err != nil {
		return fmt.Errorf("focus context %s: %w", id, err)
	}
	return nil
}

func (s *ChromeSession) CloseCurrent(ctx context.Context) error {
	id := s.active
	switch id {
	case "":
		return errors.New("close context: nothing is focused")
	case s.original:
		return errors.New("close context: refusing to close the original context")
	}
	t := s.tabs[id]
	delete(s.tabs, id)
	s.active = ""

	closeCtx, cancel := context.WithTimeout(s.tabs[s.original].ctx, s.cfg.ElementTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := target.CloseTarget(target.ID(id)).Do(cdp.WithExecutor(closeCtx, chromedp.FromContext(closeCtx).Browser))
	t.cancel()
	if err != nil {
		return fmt.Errorf("close context %s: %w", id, err)
	}
	return nil
}

func (s *ChromeSession) Close() error {
	s.cancel()
	return nil
}
