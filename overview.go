package opvault

// Overview is the decrypted superficial view of an item: what a list UI
// shows without touching the detail. Every field is optional in the file.
type Overview struct {
	Title string   `json:"title"`
	Ainfo string   `json:"ainfo"`
	URLs  []URL    `json:"URLs"`
	URL   string   `json:"url"`
	Tags  []string `json:"tags"`
	Ps    int64    `json:"ps"`
}

// URL is one entry of an overview's URLs list.
type URL struct {
	U string `json:"u"`
}

// FolderOverview is the decrypted overview of a folder. PredicateB64 is
// present on smart folders; real vaults are known to carry malformed
// content in it, so it is surfaced untouched and never interpreted.
type FolderOverview struct {
	Title        string `json:"title"`
	PredicateB64 string `json:"predicate_b64"`
}
