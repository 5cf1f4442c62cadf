// Package github indexes one GitHub repository per source: repository
// doc files from the default branch tree, wiki pages from the
// {repo}.wiki git repository, and issues with their comment threads.
//
// A composite token cursor carries the last seen tree SHA, wiki SHA
// and issue update watermark, so listing an unchanged repository costs
// a handful of API calls. Requests are throttled proactively and react
// to GitHub's rate limit headers.
package github
