package biliapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Following is one creator the account follows. Special mirrors the upstream
// "special attention" relationship flag.
type Following struct {
	Name    string `json:"name"`
	MID     string `json:"mid"`
	Special bool   `json:"special"`
}

const defaultFollowingsPageSize = 50

// ListFollowings pages through the relation endpoint and returns the followed
// creators for vmid, at most maxPages pages. Paging stops on the first empty
// page. Errors are propagated to the caller; there is no retry here.
func (c *Client) ListFollowings(ctx context.Context, vmid, sessdata string, maxPages int) ([]Following, error) {
	if maxPages <= 0 {
		maxPages = 3
	}
	ps := c.FollowingsPageSize
	if ps <= 0 {
		ps = defaultFollowingsPageSize
	}
	var results []Following
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("vmid", vmid)
		q.Set("pn", strconv.Itoa(page))
		q.Set("ps", strconv.Itoa(ps))
		q.Set("order", "desc")
		q.Set("order_type", "attention")

		var data struct {
			List []struct {
				Uname   string `json:"uname"`
				MID     int64  `json:"mid"`
				Special int    `json:"special"`
			} `json:"list"`
		}
		if err := c.getJSON(ctx, "/x/relation/followings", q, sessdata, &data); err != nil {
			return nil, err
		}
		if len(data.List) == 0 {
			break
		}
		for _, item := range data.List {
			f := Following{
				Name:    strings.TrimSpace(item.Uname),
				Special: item.Special == 1,
			}
			if f.Name == "" {
				f.Name = "unknown"
			}
			if item.MID != 0 {
				f.MID = strconv.FormatInt(item.MID, 10)
			} else {
				f.MID = "unknown"
			}
			results = append(results, f)
		}
	}
	return results, nil
}

// SearchFollowings filters followings by a case-insensitive substring match on
// the creator name. An empty keyword matches nothing.
func SearchFollowings(followings []Following, keyword string) []Following {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil
	}
	var results []Following
	for _, f := range followings {
		if strings.Contains(strings.ToLower(f.Name), keyword) {
			results = append(results, f)
		}
	}
	return results
}
