package domain

// Resource is the display metadata resolved for a shared-link code.
type Resource struct {
	Code         string `json:"code"`
	CanonicalURL string `json:"canonical_url"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// HasThumbnail reports whether a thumbnail was found on the viewer page.
func (r Resource) HasThumbnail() bool {
	return r.ThumbnailURL != ""
}
