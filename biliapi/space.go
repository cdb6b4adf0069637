package biliapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Upload is one video upload of a creator.
type Upload struct {
	Title   string `json:"title"`
	Created int64  `json:"created_ts"`
	BVID    string `json:"bvid"`
	Author  string `json:"author"`
	Link    string `json:"link"`
}

const defaultUploadsPageSize = 30

// ListUploads pages through a creator's upload listing newest-first and returns
// the uploads created at or after cutoff (unix seconds), at most maxPages
// pages. Paging stops early once a page's last item falls under the cutoff, or
// when a page comes back empty.
//
// The early stop relies on the upstream ordering items strictly descending by
// creation time; an out-of-order page could hide in-window items on later
// pages.
func (c *Client) ListUploads(ctx context.Context, mid string, cutoff int64, sessdata string, maxPages int) ([]Upload, error) {
	if maxPages <= 0 {
		maxPages = 3
	}
	ps := c.UploadsPageSize
	if ps <= 0 {
		ps = defaultUploadsPageSize
	}
	var uploads []Upload
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("mid", mid)
		q.Set("pn", strconv.Itoa(page))
		q.Set("ps", strconv.Itoa(ps))
		q.Set("order", "pubdate")

		var data struct {
			List struct {
				Vlist []struct {
					Title   string `json:"title"`
					Created int64  `json:"created"`
					BVID    string `json:"bvid"`
					Author  string `json:"author"`
				} `json:"vlist"`
			} `json:"list"`
		}
		if err := c.getJSON(ctx, "/x/space/arc/search", q, sessdata, &data); err != nil {
			return nil, err
		}
		vlist := data.List.Vlist
		if len(vlist) == 0 {
			break
		}
		for _, item := range vlist {
			if item.Created < cutoff {
				break
			}
			u := Upload{
				Title:   strings.TrimSpace(item.Title),
				Created: item.Created,
				BVID:    strings.TrimSpace(item.BVID),
				Author:  strings.TrimSpace(item.Author),
			}
			if u.Title == "" {
				u.Title = "untitled"
			}
			if u.BVID != "" {
				u.Link = "https://www.bilibili.com/video/" + u.BVID
			}
			uploads = append(uploads, u)
		}
		if vlist[len(vlist)-1].Created < cutoff {
			break
		}
	}
	return uploads, nil
}
