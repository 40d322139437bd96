package utils

import (
	"net/url"
	"strings"
)

// GetRedactedUrl strips credentials, query strings and path segments that
// commonly carry API keys from an RPC url before it is logged.
func GetRedactedUrl(requrl string) string {
	urlData, err := url.Parse(requrl)
	if err != nil || urlData.Host == "" {
		return "?"
	}

	var sb strings.Builder
	sb.WriteString(urlData.Scheme)
	sb.WriteString("://")
	if urlData.User != nil {
		sb.WriteString("***@")
	}
	sb.WriteString(urlData.Host)

	if path := strings.Trim(urlData.Path, "/"); path != "" {
		segments := strings.Split(path, "/")
		for _, segment := range segments {
			sb.WriteString("/")
			if len(segment) >= 16 {
				sb.WriteString("***")
			} else {
				sb.WriteString(segment)
			}
		}
	}
	if urlData.RawQuery != "" {
		sb.WriteString("?***")
	}
	return sb.String()
}

// GetUrlHost returns just the host of an url, used as a low cardinality label.
func GetUrlHost(requrl string) string {
	urlData, err := url.Parse(requrl)
	if err != nil || urlData.Host == "" {
		return "unknown"
	}
	return urlData.Hostname()
}
