package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/oceandive/backend/errs"
)

// Content block variant tags. Anything else is carried opaquely through
// decode/encode but rejected by ValidateBlocks on write.
const (
	BlockTypeText  = "text"
	BlockTypeImage = "image"
)

// ImageURLPrefix is the canonical public prefix for blog image URLs. Image
// blocks may only reference bytes written under this namespace.
const ImageURLPrefix = "/storage/blogs/"

var imageURLPattern = regexp.MustCompile(`^/storage/blogs/[^/]+$`)

// ContentBlock is one typed unit of blog content. The variant tag selects
// which fields are meaningful: text blocks carry markdown in Content, image
// blocks carry URL/Alt/Caption. Blocks decoded from storage with an
// unrecognized tag keep their original document so a later encode reproduces
// them unchanged.
type ContentBlock struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`

	// raw holds the original document for unknown variants only
	raw json.RawMessage
}

// TextBlock returns a text content block.
func TextBlock(content string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Content: content}
}

// ImageBlock returns an image content block referencing an uploaded URL.
func ImageBlock(url, alt, caption string) ContentBlock {
	return ContentBlock{Type: BlockTypeImage, URL: url, Alt: alt, Caption: caption}
}

// Known reports whether the block's variant tag is one this version
// understands.
func (b ContentBlock) Known() bool {
	return b.Type == BlockTypeText || b.Type == BlockTypeImage
}

type blockWire struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// UnmarshalJSON decodes a tagged block record. Unknown variant tags are not
// an error: the original document is retained verbatim so it survives a
// subsequent encode without this version knowing its fields.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.Type {
	case BlockTypeText, BlockTypeImage:
		var w blockWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*b = ContentBlock{Type: w.Type, Content: w.Content, URL: w.URL, Alt: w.Alt, Caption: w.Caption}
	default:
		*b = ContentBlock{Type: tag.Type, raw: append(json.RawMessage(nil), data...)}
	}
	return nil
}

// MarshalJSON emits the variant tag plus that variant's fields. Blocks
// carried opaquely re-emit their original document.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	if b.raw != nil {
		return append([]byte(nil), b.raw...), nil
	}
	return json.Marshal(blockWire{
		Type:    b.Type,
		Content: b.Content,
		URL:     b.URL,
		Alt:     b.Alt,
		Caption: b.Caption,
	})
}

// BlockList is the ordered block sequence of a blog post, persisted as a
// single JSON column. Order of the array equals construction order; neither
// encode nor decode reorders.
type BlockList []ContentBlock

// Value implements driver.Valuer, encoding the sequence for storage.
func (l BlockList) Value() (driver.Value, error) {
	if l == nil {
		l = BlockList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner. A stored document that is not a valid block
// array is corruption or an incompatible historical write, surfaced as a
// storage integrity failure rather than a validation error.
func (l *BlockList) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = BlockList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%w: unsupported column type %T for content blocks", errs.ErrStorageIntegrity, value)
	}

	if len(data) == 0 {
		*l = BlockList{}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorageIntegrity, err)
	}
	*l = blocks
	return nil
}

// GormDataType tells gorm which column type backs the encoded sequence.
func (BlockList) GormDataType() string {
	return "json"
}

// ValidateBlocks checks each candidate block against its declared variant's
// rules before anything reaches storage. Validation is fail-fast: the first
// offending block's index and reason are reported. Pure function, no side
// effects.
func ValidateBlocks(blocks []ContentBlock) error {
	for i, b := range blocks {
		switch b.Type {
		case BlockTypeText:
			if b.Content == "" {
				return errs.NewInvalidBlockFieldError(i, "content", "text block requires non-empty content")
			}
		case BlockTypeImage:
			if b.URL == "" {
				return errs.NewInvalidBlockFieldError(i, "url", "image block requires a url")
			}
			if !imageURLPattern.MatchString(b.URL) {
				return errs.NewInvalidBlockFieldError(i, "url",
					fmt.Sprintf("url %q does not match the storage path pattern %s<name>", b.URL, ImageURLPrefix))
			}
		default:
			return errs.NewInvalidBlockTypeError(i, b.Type)
		}
	}
	return nil
}
