// Command bilidebug probes the Bilibili space API for a set of creator ids and
// prints what the service would see: raw HTTP status, the envelope code, and
// how many uploads fall inside the lookback window. Useful when the feed comes
// back empty and the question is "credential, rate limit, or genuinely no
// uploads?".
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/zixifan/bili-helper/biliapi"
	"github.com/zixifan/bili-helper/feed"
)

const (
	defaultAPIBase = "https://api.bilibili.com"
	maxAttempts    = 3
	bodyHeadBytes  = 300
)

func main() {
	cmd := &cli.Command{
		Name:  "bilidebug",
		Usage: "Probe the Bilibili uploads API for given creator ids",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mids", Usage: "Comma-separated creator ids to probe", Required: true},
			&cli.IntFlag{Name: "hours", Usage: "Lookback window in hours", Value: 2},
			&cli.IntFlag{Name: "sleep", Usage: "Seconds to sleep between targets", Value: 1},
			&cli.StringFlag{Name: "sessdata", Usage: "SESSDATA cookie value (default: BILI_SESSDATA env, else prompt)"},
			&cli.StringFlag{Name: "api-base", Usage: "API base URL", Value: defaultAPIBase},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			sessdata := c.String("sessdata")
			if sessdata == "" {
				sessdata = os.Getenv("BILI_SESSDATA")
			}
			if sessdata == "" {
				var err error
				sessdata, err = promptSessData()
				if err != nil {
					return err
				}
			}

			mids := splitMids(c.String("mids"))
			if len(mids) == 0 {
				return fmt.Errorf("no valid mids given")
			}
			cutoff := time.Now().Add(-time.Duration(c.Int("hours")) * time.Hour).Unix()
			client := &http.Client{Timeout: 15 * time.Second}

			fmt.Printf("probing %d creators, cutoff %s\n\n", len(mids), time.Unix(cutoff, 0).Format(time.RFC3339))
			for i, mid := range mids {
				if err := probeCreator(ctx, client, c.String("api-base"), mid, sessdata, cutoff, os.Stdout); err != nil {
					fmt.Printf("mid %s: %v\n", mid, err)
				}
				if i < len(mids)-1 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(time.Duration(c.Int("sleep")) * time.Second):
					}
				}
			}
			aggregateTargets(ctx, c.String("api-base"), mids, cutoff, sessdata, os.Stdout)
			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// promptSessData reads the credential without echoing it.
func promptSessData() (string, error) {
	fmt.Fprint(os.Stderr, "SESSDATA: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", fmt.Errorf("empty credential")
	}
	return s, nil
}

func splitMids(raw string) []string {
	var mids []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			mids = append(mids, m)
		}
	}
	return mids
}

// aggregateTargets runs the production merge over the probed ids and prints
// the combined view, so the raw per-creator output above can be compared with
// what the feed would actually serve.
func aggregateTargets(ctx context.Context, apiBase string, mids []string, cutoff int64, sessdata string, out io.Writer) {
	agg := feed.Aggregator{Src: &biliapi.Client{BaseURL: apiBase, UserAgent: "bili-helper-debug/1.0"}}
	updates, statuses := agg.AggregateSince(ctx, feed.Targets(mids), cutoff, sessdata, 0)
	counts := feed.CountByStatus(statuses)

	fmt.Fprintf(out, "\nmerged feed: %d updates from %d targets (updated %d, no_updates %d, api_failed %d)\n",
		len(updates), len(statuses),
		counts[feed.StatusUpdated], counts[feed.StatusNoUpdates], counts[feed.StatusAPIFailed])
	const maxShown = 10
	for i, u := range updates {
		if i == maxShown {
			fmt.Fprintf(out, "  ... %d more\n", len(updates)-maxShown)
			break
		}
		fmt.Fprintf(out, "  %s  [%s] %s\n", time.Unix(u.Created, 0).Format(time.RFC3339), u.CreatorMID, u.Title)
	}
}

// spaceEnvelope mirrors the uploads endpoint response shape, only as deep as
// the probe needs.
type spaceEnvelope struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    struct {
		List struct {
			Vlist []struct {
				Title   string `json:"title"`
				Created int64  `json:"created"`
			} `json:"vlist"`
		} `json:"list"`
	} `json:"data"`
}

// probeCreator fetches page 1 of a creator's uploads and reports what came
// back. HTTP 429 responses are retried up to maxAttempts with doubling backoff
// starting at one second.
func probeCreator(ctx context.Context, client *http.Client, apiBase, mid, sessdata string, cutoff int64, out io.Writer) error {
	q := url.Values{}
	q.Set("mid", mid)
	q.Set("pn", "1")
	q.Set("ps", "30")
	q.Set("order", "pubdate")
	target := apiBase + "/x/space/arc/search?" + q.Encode()

	resp, body, err := fetchWithBackoff(ctx, client, target, sessdata)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "mid %s: HTTP %d\n", mid, resp.StatusCode)
	head := body
	if len(head) > bodyHeadBytes {
		head = head[:bodyHeadBytes]
	}
	fmt.Fprintf(out, "  body: %s\n", strings.TrimSpace(string(head)))

	var env spaceEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		fmt.Fprintf(out, "  body is not valid JSON: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "  api code %d (%s)\n", env.Code, env.Message)
	if env.Code != 0 {
		return nil
	}

	vlist := env.Data.List.Vlist
	hits := 0
	var earliest, latest int64
	for _, v := range vlist {
		if v.Created >= cutoff {
			hits++
		}
		if earliest == 0 || v.Created < earliest {
			earliest = v.Created
		}
		if v.Created > latest {
			latest = v.Created
		}
	}
	fmt.Fprintf(out, "  %d uploads on page 1, %d at or after cutoff\n", len(vlist), hits)
	if len(vlist) > 0 {
		fmt.Fprintf(out, "  earliest %s, latest %s\n",
			time.Unix(earliest, 0).Format(time.RFC3339),
			time.Unix(latest, 0).Format(time.RFC3339))
	}
	return nil
}

// fetchWithBackoff GETs target, retrying on HTTP 429 with exponential backoff.
// The response body is fully read and returned so the caller can print it.
func fetchWithBackoff(ctx context.Context, client *http.Client, target, sessdata string) (*http.Response, []byte, error) {
	backoff := 1 * time.Second
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("User-Agent", "bili-helper-debug/1.0")
		req.Header.Set("Referer", "https://www.bilibili.com/")
		req.Header.Set("Cookie", "SESSDATA="+sessdata)

		resp, err := client.Do(req)
		if err != nil {
			return nil, nil, err
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		if err != nil {
			return nil, nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxAttempts {
			return resp, body, nil
		}
		fmt.Fprintf(os.Stderr, "  rate limited, retrying in %s (attempt %d/%d)\n", backoff, attempt, maxAttempts)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
