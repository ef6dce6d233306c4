package wikifetch

import (
	"context"
	"strings"
)

// DefaultCategoryField is the work item field used for category filtering
// when no other field is configured.
const DefaultCategoryField = "era"

// WorkItem identifies one entity to fetch an article for.
// Work items are never mutated after they are read.
type WorkItem struct {
	Key         string            `json:"key"`
	DisplayName string            `json:"display_name"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Validate returns an error if the work item contains invalid fields.
func (i *WorkItem) Validate() error {
	if strings.TrimSpace(i.Key) == "" {
		return Errorf(EINVALID, "work item key required")
	}
	if strings.TrimSpace(i.DisplayName) == "" {
		return Errorf(EINVALID, "work item %q display name required", i.Key)
	}
	return nil
}

// Field returns the associated field with the given name, or "" if absent.
func (i *WorkItem) Field(name string) string {
	if i.Fields == nil {
		return ""
	}
	return i.Fields[name]
}

// CopyFields returns a copy of the associated fields, suitable for carrying
// into a FetchResult without aliasing the work item.
func (i *WorkItem) CopyFields() map[string]string {
	fields := make(map[string]string, len(i.Fields))
	for k, v := range i.Fields {
		fields[k] = v
	}
	return fields
}

// WorkItemSource reads the ordered list of work items for a run.
type WorkItemSource interface {
	// ReadWorkItems returns every work item in input order.
	// Items are returned as-is; deduplication is the caller's concern.
	ReadWorkItems(ctx context.Context) ([]*WorkItem, error)
}
