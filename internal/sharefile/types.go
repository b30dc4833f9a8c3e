package sharefile

import (
	"strings"
	"time"
)

// Item is a normalized ShareFile item (file or folder). Children is set
// only when the item was fetched with its children expanded.
type Item struct {
	ID           string
	Name         string
	FileName     string
	Description  string
	IsFolder     bool
	Size         int64
	CreationDate time.Time
	ParentID     string
	URL          string // OData self link
	Children     []Item
}

// Principal identifies the account a session is logged in as.
type Principal struct {
	ID       string
	Name     string
	Email    string
	Username string
}

// Share is a link-based share of one or more items.
type Share struct {
	ID             string
	URI            string
	ShareType      string
	ExpirationDate time.Time
	MaxDownloads   int
	Items          []Item
}

// ShareSendParams describes an emailed share. MaxDownloads of -1 means
// unlimited downloads.
type ShareSendParams struct {
	Items          []string `json:"Items"`
	Emails         []string `json:"Emails"`
	Subject        string   `json:"Subject,omitempty"`
	Body           string   `json:"Body,omitempty"`
	MaxDownloads   int      `json:"MaxDownloads"`
	ExpirationDays int      `json:"ExpirationDays"`
	NotifyOnAccess bool     `json:"NotifyOnAccess"`
}

// UnlimitedDownloads is the MaxDownloads value that removes the download cap.
const UnlimitedDownloads = -1

// itemResponse mirrors the ShareFile Item JSON. The concrete model is named
// in odata.type ("ShareFile.Api.Models.Folder", "...File").
// Unexported; callers use Item via toItem().
type itemResponse struct {
	ODataType     string         `json:"odata.type"` //nolint:tagliatelle // OData annotation key
	URL           string         `json:"url"`
	ID            string         `json:"Id"`
	Name          string         `json:"Name"`
	FileName      string         `json:"FileName"`
	Description   string         `json:"Description"`
	FileSizeBytes int64          `json:"FileSizeBytes"`
	CreationDate  string         `json:"CreationDate"`
	Parent        *parentRef     `json:"Parent"`
	Children      []itemResponse `json:"Children"`
}

type parentRef struct {
	ID string `json:"Id"`
}

type principalResponse struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	Email    string `json:"Email"`
	Username string `json:"Username"`
}

type sessionResponse struct {
	ID        string            `json:"Id"`
	Principal principalResponse `json:"Principal"`
}

type shareResponse struct {
	ID             string         `json:"Id"`
	URI            string         `json:"Uri"`
	ShareType      string         `json:"ShareType"`
	ExpirationDate string         `json:"ExpirationDate"`
	MaxDownloads   int            `json:"MaxDownloads"`
	Items          []itemResponse `json:"Items"`
}

// toItem converts the wire representation into Item, recursing into children.
func toItem(r *itemResponse) Item {
	item := Item{
		ID:           r.ID,
		Name:         r.Name,
		FileName:     r.FileName,
		Description:  r.Description,
		IsFolder:     strings.HasSuffix(r.ODataType, ".Folder"),
		Size:         r.FileSizeBytes,
		CreationDate: parseTime(r.CreationDate),
		URL:          r.URL,
	}

	if r.Parent != nil {
		item.ParentID = r.Parent.ID
	}

	if r.Children != nil {
		item.IsFolder = true
		item.Children = make([]Item, 0, len(r.Children))

		for i := range r.Children {
			item.Children = append(item.Children, toItem(&r.Children[i]))
		}
	}

	return item
}

func toShare(r *shareResponse) *Share {
	share := &Share{
		ID:             r.ID,
		URI:            r.URI,
		ShareType:      r.ShareType,
		ExpirationDate: parseTime(r.ExpirationDate),
		MaxDownloads:   r.MaxDownloads,
	}

	for i := range r.Items {
		share.Items = append(share.Items, toItem(&r.Items[i]))
	}

	return share
}

// parseTime accepts the API's timestamps, which come with or without a zone
// suffix. Unparsable values yield the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}
