// Package linkverify scans generated HTML pages for internal links that do
// not resolve to a file inside the output directory.
package linkverify
