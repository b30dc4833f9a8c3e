package dropbox

import (
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
)

// Entry is a folder listing entry, normalized from the SDK's tagged
// metadata union. Callers never type-switch on SDK types.
type Entry struct {
	ID             string
	Name           string
	PathDisplay    string
	PathLower      string
	IsFolder       bool
	IsDeleted      bool
	Size           uint64 // files only
	Rev            string // files only
	ContentHash    string // files only
	ServerModified time.Time
}

// Listing is one page of a folder listing. HasMore reports that the vendor
// holds further entries reachable only through ListFolderContinue(Cursor).
type Listing struct {
	Entries []Entry
	Cursor  string
	HasMore bool
}

// toEntry normalizes one SDK metadata value. Unknown variants keep only the
// common name/path fields.
func toEntry(m files.IsMetadata) Entry {
	switch v := m.(type) {
	case *files.FileMetadata:
		return fileEntry(v)
	case *files.FolderMetadata:
		return Entry{
			ID:          v.Id,
			Name:        v.Name,
			PathDisplay: v.PathDisplay,
			PathLower:   v.PathLower,
			IsFolder:    true,
		}
	case *files.DeletedMetadata:
		return Entry{
			Name:        v.Name,
			PathDisplay: v.PathDisplay,
			PathLower:   v.PathLower,
			IsDeleted:   true,
		}
	default:
		return Entry{}
	}
}

func fileEntry(v *files.FileMetadata) Entry {
	return Entry{
		ID:             v.Id,
		Name:           v.Name,
		PathDisplay:    v.PathDisplay,
		PathLower:      v.PathLower,
		Size:           v.Size,
		Rev:            v.Rev,
		ContentHash:    v.ContentHash,
		ServerModified: v.ServerModified,
	}
}

func toListing(res *files.ListFolderResult) *Listing {
	entries := make([]Entry, 0, len(res.Entries))
	for _, m := range res.Entries {
		entries = append(entries, toEntry(m))
	}

	return &Listing{
		Entries: entries,
		Cursor:  res.Cursor,
		HasMore: res.HasMore,
	}
}
