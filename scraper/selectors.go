package scraper

// CSS selectors used across the scraper.
const (
	// Search results page
	ResultCountSelector = `.result_count`
	RowSelector         = `div.rslt`
	TitleLinkSelector   = `p.title a`
	DescSelector        = `p.desc`

	// Pagination
	PageInputSelector     = `#pageno2`
	PageIndicatorSelector = `h3.page`

	// Detail page (report=fasta)
	SequenceSelector = `pre`
)
