package notes

import "strings"

// TagMarker is prepended to tags when rendering.
const TagMarker = "#"

// Note is one captured voice note. IDs are unix-millisecond timestamps;
// uniqueness is practical rather than enforced, colliding only when two
// notes are created within the same millisecond.
type Note struct {
	ID   int64    `json:"id"`
	Note string   `json:"note"`
	Tags []string `json:"tags"`
}

// New builds a note with a copy of tags so callers cannot mutate it later.
func New(id int64, text string, tags []string) Note {
	return Note{ID: id, Note: text, Tags: append([]string(nil), tags...)}
}

// DisplayTag returns the tag with exactly one leading marker: a bare tag
// gains one, a tag already carrying it is returned unchanged.
func DisplayTag(tag string) string {
	if strings.HasPrefix(tag, TagMarker) {
		return tag
	}
	return TagMarker + tag
}
