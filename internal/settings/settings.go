// Package settings provides the per-user ad defaults read once per job:
// creative enhancement preferences, default UTM parameters, and default page
// and Instagram identities.
//
// Settings exist at two levels. A user's GLOBAL record applies to every ad
// account; an ADACCOUNT# record overrides it field by field for one account.
package settings

import (
	"context"
	"maps"
	"net/url"
	"strings"
)

// UTMParam is one URL tag key/value pair.
type UTMParam struct {
	Key   string `json:"key" dynamodbav:"key"`
	Value string `json:"value" dynamodbav:"value"`
}

// AccountSettings are the defaults that apply to one user and ad account.
type AccountSettings struct {
	Enhancements       map[string]bool `json:"enhancements,omitempty" dynamodbav:"enhancements,omitempty"`
	DefaultUTMs        []UTMParam      `json:"defaultUtms,omitempty" dynamodbav:"defaultUtms,omitempty"`
	PageID             string          `json:"pageId,omitempty" dynamodbav:"pageId,omitempty"`
	InstagramAccountID string          `json:"instagramAccountId,omitempty" dynamodbav:"instagramAccountId,omitempty"`
	UpdatedAt          int64           `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}

// Store reads settings. Missing records yield zero-value settings, not errors.
type Store interface {
	AccountSettings(ctx context.Context, userID, adAccountID string) (AccountSettings, error)
}

// Static returns the same settings for every user and account.
type Static struct {
	Settings AccountSettings
}

var _ Store = Static{}

func (s Static) AccountSettings(ctx context.Context, userID, adAccountID string) (AccountSettings, error) {
	return s.Settings, nil
}

// Merge overlays account-level settings onto global ones. Non-empty account
// fields win; enhancement flags are merged key by key.
func Merge(global, account AccountSettings) AccountSettings {
	out := global
	if len(global.Enhancements) > 0 || len(account.Enhancements) > 0 {
		out.Enhancements = make(map[string]bool, len(global.Enhancements)+len(account.Enhancements))
		maps.Copy(out.Enhancements, global.Enhancements)
		maps.Copy(out.Enhancements, account.Enhancements)
	}
	if len(account.DefaultUTMs) > 0 {
		out.DefaultUTMs = account.DefaultUTMs
	}
	if account.PageID != "" {
		out.PageID = account.PageID
	}
	if account.InstagramAccountID != "" {
		out.InstagramAccountID = account.InstagramAccountID
	}
	if account.UpdatedAt > out.UpdatedAt {
		out.UpdatedAt = account.UpdatedAt
	}
	return out
}

// URLTags combines default UTM pairs with the tags sent on the request.
// Request keys replace defaults with the same key. Defaults keep their
// order, followed by the remaining request pairs in their original order.
func URLTags(defaults []UTMParam, requestTags string) string {
	requestTags = strings.TrimPrefix(strings.TrimSpace(requestTags), "?")

	type pair struct{ key, value string }
	var fromRequest []pair
	override := make(map[string]string)
	for _, part := range strings.Split(requestTags, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			value = v
		}
		if _, dup := override[key]; !dup {
			fromRequest = append(fromRequest, pair{key, value})
		}
		override[key] = value
	}

	var parts []string
	used := make(map[string]bool)
	for _, p := range defaults {
		if p.Key == "" || used[p.Key] {
			continue
		}
		used[p.Key] = true
		value := p.Value
		if v, ok := override[p.Key]; ok {
			value = v
		}
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(value))
	}
	for _, p := range fromRequest {
		if used[p.key] {
			continue
		}
		used[p.key] = true
		parts = append(parts, url.QueryEscape(p.key)+"="+url.QueryEscape(override[p.key]))
	}
	return strings.Join(parts, "&")
}
