// Package content holds the repository content models and their clients.
package content

import "github.com/kbukum/hyperdata/hal"

// Resource types.
const (
	TypeItem            hal.ResourceType = "item"
	TypeBundle          hal.ResourceType = "bundle"
	TypeBitstream       hal.ResourceType = "bitstream"
	TypeBitstreamFormat hal.ResourceType = "bitstreamformat"
)

// Link paths in the endpoint table.
const (
	PathItems            = "items"
	PathBundles          = "bundles"
	PathBitstreams       = "bitstreams"
	PathBitstreamFormats = "bitstreamformats"
)

// Relations.
const (
	RelBundles    = "bundles"
	RelBitstreams = "bitstreams"
	RelFormat     = "format"
	RelThumbnail  = "thumbnail"
)

// ThumbnailBundle is the name of the bundle holding generated thumbnails.
const ThumbnailBundle = "THUMBNAIL"

// MetadataValue is one value of a metadata field.
type MetadataValue struct {
	Value     string `json:"value"`
	Language  string `json:"language,omitempty"`
	Authority string `json:"authority,omitempty"`
	Place     int    `json:"place"`
}

// Item is an archived item.
type Item struct {
	hal.Resource
	Name         string                     `json:"name"`
	Handle       string                     `json:"handle,omitempty"`
	InArchive    bool                       `json:"inArchive"`
	Discoverable bool                       `json:"discoverable"`
	Withdrawn    bool                       `json:"withdrawn"`
	LastModified string                     `json:"lastModified,omitempty"`
	Metadata     map[string][]MetadataValue `json:"metadata,omitempty"`
}

// FirstMetadataValue returns the first value of field.
func (i *Item) FirstMetadataValue(field string) (string, bool) {
	values := i.Metadata[field]
	if len(values) == 0 {
		return "", false
	}
	return values[0].Value, true
}

// Bundles returns the resolved bundles relation.
func (i *Item) Bundles() (*hal.PaginatedList[*Bundle], bool, error) {
	return hal.LinkedList[Bundle](&i.Resource, RelBundles)
}

// Thumbnail returns the resolved thumbnail relation.
func (i *Item) Thumbnail() (*Bitstream, bool, error) {
	return hal.LinkedObject[Bitstream](&i.Resource, RelThumbnail)
}

// Bundle groups the bitstreams of an item.
type Bundle struct {
	hal.Resource
	Name string `json:"name"`
}

// Bitstreams returns the resolved bitstreams relation.
func (b *Bundle) Bitstreams() (*hal.PaginatedList[*Bitstream], bool, error) {
	return hal.LinkedList[Bitstream](&b.Resource, RelBitstreams)
}

// CheckSum is a bitstream checksum.
type CheckSum struct {
	Algorithm string `json:"checkSumAlgorithm"`
	Value     string `json:"value"`
}

// Bitstream is a stored file.
type Bitstream struct {
	hal.Resource
	Name       string    `json:"name"`
	BundleName string    `json:"bundleName,omitempty"`
	SizeBytes  int64     `json:"sizeBytes"`
	SequenceID int       `json:"sequenceId"`
	CheckSum   *CheckSum `json:"checkSum,omitempty"`
}

// Format returns the resolved format relation.
func (b *Bitstream) Format() (*BitstreamFormat, bool, error) {
	return hal.LinkedObject[BitstreamFormat](&b.Resource, RelFormat)
}

// BitstreamFormat describes a file format.
type BitstreamFormat struct {
	hal.Resource
	ShortDescription string   `json:"shortDescription"`
	Description      string   `json:"description,omitempty"`
	MimeType         string   `json:"mimetype"`
	SupportLevel     string   `json:"supportLevel,omitempty"`
	Internal         bool     `json:"internal"`
	Extensions       []string `json:"extensions,omitempty"`
}
