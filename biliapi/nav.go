package biliapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Profile is the account behind a SESSDATA credential.
type Profile struct {
	Name string
	MID  string
	Face string
}

// Nav resolves a SESSDATA credential to its account profile.
func (c *Client) Nav(ctx context.Context, sessdata string) (Profile, error) {
	var data struct {
		Uname string `json:"uname"`
		MID   int64  `json:"mid"`
		Face  string `json:"face"`
	}
	if err := c.getJSON(ctx, "/x/web-interface/nav", url.Values{}, sessdata, &data); err != nil {
		return Profile{}, err
	}
	p := Profile{
		Name: strings.TrimSpace(data.Uname),
		Face: strings.TrimSpace(data.Face),
	}
	if p.Name == "" {
		p.Name = "bilibili user"
	}
	if data.MID != 0 {
		p.MID = strconv.FormatInt(data.MID, 10)
	}
	return p, nil
}
