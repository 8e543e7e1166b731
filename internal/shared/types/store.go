package types

// StoreListing is a remote catalog entry. Listings are owned by the
// store client; the registry only ever persists the manifest and code
// resolved from one at download time.
type StoreListing struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Version       string   `json:"version"`
	Author        string   `json:"author"`
	Rating        float64  `json:"rating"`
	DownloadCount int      `json:"download_count"`
	Size          int64    `json:"size"`
	Tags          []string `json:"tags,omitempty"`
	Screenshots   []string `json:"screenshots,omitempty"`
	Price         int      `json:"price"` // minor currency units, 0 = free
	Featured      bool     `json:"featured"`
	Verified      bool     `json:"verified"`
	Changelog     string   `json:"changelog,omitempty"`
	Category      string   `json:"category,omitempty"`
}
