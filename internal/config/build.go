package config

import "strings"

// BuildConfig holds per-build policy knobs.
type BuildConfig struct {
	OnPageError     PagePolicy         `yaml:"on_page_error"`
	LastModified    LastModifiedSource `yaml:"last_modified"`
	TimestampFormat string             `yaml:"timestamp_format"`
	VerifyLinks     bool               `yaml:"verify_links"`
}

// PagePolicy decides what a failing page does to the build.
type PagePolicy string

const (
	PagePolicyFail PagePolicy = "fail" // abort the build on the first failing page
	PagePolicySkip PagePolicy = "skip" // record a warning and continue with the next page
)

// NormalizePagePolicy canonicalizes user input returning empty string if unknown.
func NormalizePagePolicy(raw string) PagePolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(PagePolicyFail), "abort":
		return PagePolicyFail
	case string(PagePolicySkip), "continue":
		return PagePolicySkip
	default:
		return ""
	}
}

// LastModifiedSource selects where a page's "last updated" stamp comes from.
type LastModifiedSource string

const (
	LastModifiedBuild LastModifiedSource = "build" // build start time, identical for every page
	LastModifiedGit   LastModifiedSource = "git"   // last commit touching the source file
)

// NormalizeLastModifiedSource canonicalizes user input returning empty string if unknown.
func NormalizeLastModifiedSource(raw string) LastModifiedSource {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LastModifiedBuild), "now":
		return LastModifiedBuild
	case string(LastModifiedGit), "commit":
		return LastModifiedGit
	default:
		return ""
	}
}
